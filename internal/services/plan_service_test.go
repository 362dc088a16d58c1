package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

const sampleItinerary = `{"markdown":"# Kyoto","schedule":[{"date":"2024-05-01","weekday":"Wednesday","items":[{"period":"Morning","timeRange":"08:00-11:30","activities":[{"title":"Fushimi Inari","description":"Gates","duration":"2 hours"}]}]}]}`

func completionServer(t *testing.T, status int, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limited", "type": "rate_limit_exceeded"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  "test-model",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func planRequest() PlanRequest {
	return PlanRequest{FromCity: "Tokyo", ToCity: "Kyoto", StartDate: "2024-05-01", EndDate: "2024-05-03", Days: 3}
}

func TestPlanServiceGenerate(t *testing.T) {
	var seen openai.ChatCompletionRequest
	server := completionServer(t, http.StatusOK, sampleItinerary, &seen)

	svc, err := NewPlanService(PlanConfig{BaseURL: server.URL + "/", APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)

	itinerary, err := svc.Generate(context.Background(), planRequest())
	require.NoError(t, err)
	require.Equal(t, "# Kyoto", itinerary.Markdown)
	require.Len(t, itinerary.Schedule, 1)
	require.Equal(t, "Fushimi Inari", itinerary.Schedule[0].Items[0].Activities[0].Title)

	require.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, seen.Messages[0].Role)
	require.Equal(t, planSystemPrompt, seen.Messages[0].Content)
	require.Equal(t, openai.ChatMessageRoleUser, seen.Messages[1].Role)
	require.Contains(t, seen.Messages[1].Content, "3-day travel itinerary from Tokyo to Kyoto")
	require.Contains(t, seen.Messages[1].Content, "No special preference")
}

func TestPlanServiceRejectsInvalidOutput(t *testing.T) {
	server := completionServer(t, http.StatusOK, "Sorry, I cannot help with that.", nil)
	svc, err := NewPlanService(PlanConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), planRequest())
	require.ErrorIs(t, err, apperrors.ErrBadGateway)
}

func TestPlanServiceProviderError(t *testing.T) {
	server := completionServer(t, http.StatusTooManyRequests, sampleItinerary, nil)
	svc, err := NewPlanService(PlanConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), planRequest())
	require.ErrorIs(t, err, ErrPlanUnavailable)
}

func TestParseItineraryUnwrapsFence(t *testing.T) {
	itinerary, err := ParseItinerary("Here you go:\n```json\n" + sampleItinerary + "\n```\nEnjoy!")
	require.NoError(t, err)
	require.Equal(t, "# Kyoto", itinerary.Markdown)

	_, err = ParseItinerary("{}")
	require.Error(t, err)
	_, err = ParseItinerary("```json\nnot json\n```")
	require.Error(t, err)
}

func TestNewPlanServiceRequiresBaseURL(t *testing.T) {
	_, err := NewPlanService(PlanConfig{})
	require.Error(t, err)
}

func TestPlanServiceEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-empty","object":"chat.completion","choices":[]}`))
	}))
	t.Cleanup(server.Close)

	svc, err := NewPlanService(PlanConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), planRequest())
	require.ErrorIs(t, err, ErrPlanUnavailable)
}

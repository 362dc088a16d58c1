package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/logger"
)

const (
	defaultPlanModel   = "gpt-3.5-turbo"
	defaultPlanTimeout = 60 * time.Second

	planSystemPrompt = "You are an enthusiastic and friendly tourism planning assistant."
)

// ErrPlanUnavailable is returned when the itinerary provider cannot be reached or
// answers with something other than the requested JSON document.
var ErrPlanUnavailable = apperrors.ErrBadGateway.WithMessage("AI did not return a valid itinerary")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// PlanRequest describes the trip to plan.
type PlanRequest struct {
	FromCity    string `json:"fromCity" validate:"required"`
	ToCity      string `json:"toCity" validate:"required"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	Days        int    `json:"days" validate:"gte=1,lte=30"`
	Preferences string `json:"preferences"`
}

// Itinerary is the generated plan.
type Itinerary struct {
	Markdown string        `json:"markdown"`
	Schedule []ScheduleDay `json:"schedule"`
}

// ScheduleDay groups the activities of one day.
type ScheduleDay struct {
	Date    string           `json:"date"`
	Weekday string           `json:"weekday"`
	Items   []SchedulePeriod `json:"items"`
}

// SchedulePeriod is a block of the day such as Morning or Lunch.
type SchedulePeriod struct {
	Period     string     `json:"period"`
	TimeRange  string     `json:"timeRange"`
	Activities []Activity `json:"activities"`
}

// Activity is a single planned stop.
type Activity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

// PlanConfig points the service at an OpenAI-compatible endpoint.
type PlanConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PlanService generates itineraries through a chat completion API.
type PlanService struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewPlanService constructs a PlanService.
func NewPlanService(cfg PlanConfig) (*PlanService, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("plan service: base url is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultPlanModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultPlanTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = base
	clientCfg.HTTPClient = httpClient

	return &PlanService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		log:    logger.WithModule("planner"),
	}, nil
}

// Generate asks the provider for an itinerary and decodes its JSON answer.
func (s *PlanService) Generate(ctx context.Context, req PlanRequest) (*Itinerary, error) {
	ctx = ensureContext(ctx)
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: planSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPlanPrompt(req)},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			s.log.Warn("itinerary provider error", zap.Int("status", apiErr.HTTPStatusCode), zap.Error(err))
		} else {
			s.log.Warn("itinerary request failed", zap.Error(err))
		}
		return nil, ErrPlanUnavailable.WithInternal(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrPlanUnavailable.WithInternal(errors.New("completion has no choices"))
	}

	itinerary, err := ParseItinerary(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.Warn("itinerary output was not valid JSON", zap.Error(err))
		return nil, ErrPlanUnavailable.WithInternal(err)
	}
	return itinerary, nil
}

// ParseItinerary decodes model output, unwrapping a fenced code block if present.
func ParseItinerary(raw string) (*Itinerary, error) {
	content := strings.TrimSpace(raw)
	if match := fencedJSON.FindStringSubmatch(content); match != nil {
		content = match[1]
	}
	var itinerary Itinerary
	if err := json.Unmarshal([]byte(content), &itinerary); err != nil {
		return nil, err
	}
	if itinerary.Markdown == "" && len(itinerary.Schedule) == 0 {
		return nil, errors.New("itinerary is empty")
	}
	return &itinerary, nil
}

func buildPlanPrompt(req PlanRequest) string {
	preferences := strings.TrimSpace(req.Preferences)
	if preferences == "" {
		preferences = "No special preference"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional travel planner. Design a detailed %d-day travel itinerary from %s to %s.\n\n",
		req.Days, req.FromCity, req.ToCity)
	fmt.Fprintf(&b, "Duration: %d days (%s to %s)\nPreferences: %s\n\n", req.Days, req.StartDate, req.EndDate, preferences)
	b.WriteString("Suggest how to travel between the cities with approximate time and cost. ")
	b.WriteString("For each day include weather, clothing and a recommended hotel, then four periods: ")
	b.WriteString("Morning (08:00-11:30), Lunch (12:00-13:30), Afternoon (14:00-17:00) and Evening (17:30-21:00), ")
	b.WriteString("each with at least one named activity. Finish with hotels, food, packing tips and highlights.\n\n")
	b.WriteString("Return only a single JSON object, without code fences, shaped as:\n")
	b.WriteString(`{"markdown": "<the full itinerary as Markdown>", "schedule": [{"date": "YYYY-MM-DD", "weekday": "Friday", `)
	b.WriteString(`"items": [{"period": "Morning", "timeRange": "08:00-11:30", "activities": [{"title": "...", "description": "...", "duration": "2 hours"}]}]}]}`)
	b.WriteString("\nThe markdown field must contain the complete itinerary text.")
	return b.String()
}

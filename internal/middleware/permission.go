package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/metrics"
	"github.com/charlesng35/tripmate/pkg/response"
)

// RequireSelf only lets the request through when the path parameter param names
// the authenticated user.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		target, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			response.Error(c, errors.NewBadRequest("invalid "+param))
			c.Abort()
			return
		}
		if uint(target) != userID {
			metrics.AuthAttempts.WithLabelValues("forbidden").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

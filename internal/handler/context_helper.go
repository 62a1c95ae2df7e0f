package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext returns the authenticated caller; the zero Actor when there is none.
func actorFromContext(c *gin.Context) policy.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return policy.Actor{}
	}
	return policy.Actor{ID: claims.UserID, Role: claims.Role}
}

// queryFields collects query parameter parse failures.
type queryFields map[string]string

func (q queryFields) timestamp(c *gin.Context, name string, required bool) time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		if required {
			q[name] = "is required"
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		q[name] = "must be an RFC3339 timestamp"
		return time.Time{}
	}
	return t
}

func (q queryFields) optionalTime(c *gin.Context, name string) *time.Time {
	if strings.TrimSpace(c.Query(name)) == "" {
		return nil
	}
	t := q.timestamp(c, name, false)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (q queryFields) integer(c *gin.Context, name string, required bool) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		if required {
			q[name] = "is required"
		}
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q[name] = "must be an integer"
		return 0
	}
	return v
}

func (q queryFields) err(message string) error {
	if len(q) == 0 {
		return nil
	}
	return appErrors.Validation(message, q)
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

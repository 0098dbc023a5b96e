package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/osa911/portfolio/internal/api/constants"
	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/api/dto/v1/contact"
	"github.com/osa911/portfolio/internal/api/validation"
	"github.com/osa911/portfolio/internal/telemetry"
	"github.com/osa911/portfolio/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validate *validator.Validate
	metrics  *telemetry.Metrics
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(metrics *telemetry.Metrics) *ValidationMiddleware {
	return &ValidationMiddleware{
		validate: validation.New(),
		metrics:  metrics,
	}
}

// ValidateSubmissionRequest decodes and validates a contact submission and
// stores it under constants.ContextKeySubmission. Invalid requests stop here
// and are never sanitized or relayed.
func (m *ValidationMiddleware) ValidateSubmissionRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			m.metrics.Submission(telemetry.OutcomeInvalid)
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType,
				common.NewErrorResponse(common.ErrCodeUnsupportedMediaType, "Content-Type must be application/json", nil))
			return
		}

		var req contact.SubmissionRequest
		if err := decodeBody(c, &req); err != nil {
			m.metrics.Submission(telemetry.OutcomeInvalid)
			c.AbortWithStatusJSON(http.StatusBadRequest,
				common.NewErrorResponse(common.ErrCodeBadRequest, "Invalid JSON body", nil))
			return
		}

		req.Normalize()
		if err := m.validate.Struct(&req); err != nil {
			m.metrics.Submission(telemetry.OutcomeInvalid)
			utils.HandleValidationError(c, validation.FormatValidationError(err))
			return
		}

		c.Set(constants.ContextKeySubmission, &req)
		c.Next()
	}
}

// decodeBody prefers the body captured by PreserveRequestBody
func decodeBody(c *gin.Context, dst interface{}) error {
	if raw, ok := c.Get(constants.ContextKeyRawBody); ok {
		if b, ok := raw.([]byte); ok {
			return json.Unmarshal(b, dst)
		}
	}
	return json.NewDecoder(c.Request.Body).Decode(dst)
}

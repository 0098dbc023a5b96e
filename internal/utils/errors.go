package utils

import (
	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

// HandleAPIError writes a JSON error envelope and logs the failure.
// Error details are only exposed outside release mode.
func HandleAPIError(c *gin.Context, err error, status int, code common.ErrorCode, message string) {
	logger := logging.GetLogger()
	logger.LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		c.ClientIP(),
		status,
		message,
		err,
	)

	var details interface{}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		details = err.Error()
	}

	c.AbortWithStatusJSON(status, common.NewErrorResponse(code, message, details))
}

// HandleValidationError writes a 400 envelope listing every invalid field
func HandleValidationError(c *gin.Context, fields []common.ValidationError) {
	c.AbortWithStatusJSON(400, common.NewErrorResponse(common.ErrCodeValidation, "Invalid request body", fields))
}

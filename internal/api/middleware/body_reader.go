package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/osa911/portfolio/internal/api/constants"
	"github.com/osa911/portfolio/internal/api/dto/common"

	"github.com/gin-gonic/gin"
)

// PreserveRequestBody reads the request body once, up to maxBytes, and
// restores it so validators and handlers can both read it. Larger bodies
// are rejected with 413 before any JSON parsing happens.
func PreserveRequestBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			abortTooLarge(c)
			return
		}

		bodyBytes, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				abortTooLarge(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, common.NewErrorResponse(common.ErrCodeBadRequest, "Error reading request body", nil))
			return
		}

		// Restore the body for subsequent middleware
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		c.Set(constants.ContextKeyRawBody, bodyBytes)

		c.Next()
	}
}

func abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
		common.NewErrorResponse(common.ErrCodePayloadTooLarge, "Request body too large", nil))
}

package utils

import (
	"net/http"

	"github.com/osa911/portfolio/internal/api/dto/common"

	"github.com/gin-gonic/gin"
)

// HandleSuccess sends a success response with data
func HandleSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, common.NewSuccessResponse(data))
}

// HandleText sends a plain-text body with the given status
func HandleText(c *gin.Context, status int, body string) {
	c.String(status, body)
}

// AbortWithText sends a plain-text body and stops the handler chain
func AbortWithText(c *gin.Context, status int, body string) {
	c.String(status, body)
	c.Abort()
}

package helpers

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the single error shape used by every handler.
type ErrorResponse struct {
	Message string `json:"message"`
	Ok      bool   `json:"ok"`
}

func RespondWithError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Message: message, Ok: false})
}

package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	CartID  string `json:"cartId,omitempty"`
}

// Success sends a 200 response with the given payload
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error sends a standardized error response
func Error(c *gin.Context, statusCode int, message, details string) {
	c.JSON(statusCode, ErrorResponse{Error: message, Details: details})
}

// ErrorWithCart sends an error response referencing the persisted cart
func ErrorWithCart(c *gin.Context, statusCode int, message, details, cartID string) {
	c.JSON(statusCode, ErrorResponse{Error: message, Details: details, CartID: cartID})
}

// RespondAppError writes an AppError using its status code
func RespondAppError(c *gin.Context, appErr *AppError) {
	Error(c, appErr.Code, appErr.Message, appErr.Details)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message, details string) {
	Error(c, http.StatusBadRequest, message, details)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: message})
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, "")
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message, details string) {
	Error(c, http.StatusInternalServerError, message, details)
}

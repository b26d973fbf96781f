package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
)

// statusForError maps domain error kinds onto HTTP status codes
func statusForError(err error) int {
	switch {
	case domainerrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case domainerrors.IsValidation(err), domainerrors.IsInvalidProtocol(err):
		return http.StatusBadRequest
	case domainerrors.IsNotFound(err):
		return http.StatusNotFound
	case domainerrors.IsDuplicateRequest(err), domainerrors.IsAlreadyProcessed(err):
		return http.StatusConflict
	case domainerrors.IsInsufficientFunds(err):
		return http.StatusUnprocessableEntity
	case domainerrors.IsPaused(err):
		return http.StatusServiceUnavailable
	case domainerrors.IsTransportFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// SendDomainError renders a domain error as the standard error body
func SendDomainError(c *gin.Context, err error) {
	status := statusForError(err)

	body := entities.ErrorResponse{
		Code:      domainerrors.GetErrorCode(err),
		Message:   err.Error(),
		RequestID: c.GetString("request_id"),
	}
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs
		body.Message = "Internal server error"
	}

	c.JSON(status, body)
}

// SendBadRequest sends a 400 with a validation-style body
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:      "INVALID_REQUEST",
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}

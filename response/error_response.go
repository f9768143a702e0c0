package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
)

type ErrorResponse struct {
	StatusCode  int    `json:"-"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
}

func (r ErrorResponse) Error() string {
	return fmt.Sprintf("StatusCode: %d, Success: %t, Message: %s, Status: %s, Description: %s", r.StatusCode, r.Success, r.Message, r.Status, r.Description)
}

func (r ErrorResponse) Send(ctx context.Context, w http.ResponseWriter) {
	logger.Errorf(ctx, r.Error())
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

// FromError maps a domain error onto the response the front end acts on.
func FromError(err error) ErrorResponse {
	var r ErrorResponse
	if errors.As(err, &r) {
		return r
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		return InvalidData(err.Error())
	case errors.Is(err, model.ErrNotFound):
		return ResourceNotFound("The requested resource was not found", err.Error())
	case errors.Is(err, model.ErrCapacity):
		return domainError(http.StatusConflict, "CAPACITY_ERROR", "No tickets left for this event", err)
	case errors.Is(err, model.ErrPriceCap):
		return domainError(http.StatusUnprocessableEntity, "PRICE_CAP_ERROR", "Resale price is above the event's maximum resale price", err)
	case errors.Is(err, model.ErrNotActive):
		return domainError(http.StatusConflict, "NOT_ACTIVE", "This ticket or event is not on sale", err)
	case errors.Is(err, model.ErrAlreadyVerified):
		return domainError(http.StatusConflict, "ALREADY_VERIFIED", "This ticket has already been used", err)
	case errors.Is(err, model.ErrUnauthorized):
		return domainError(http.StatusForbidden, "FORBIDDEN", "You are not allowed to do this", err)
	case errors.Is(err, model.ErrPayment):
		return domainError(http.StatusPaymentRequired, "PAYMENT_FAILED", "Payment could not be completed", err)
	case errors.Is(err, model.ErrConflict):
		return domainError(http.StatusConflict, "CONFLICT", "Someone else changed this at the same time, please retry", err)
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout()
	}
	return SomethingWrong()
}

func domainError(code int, status, message string, err error) ErrorResponse {
	return ErrorResponse{
		StatusCode:  code,
		Success:     false,
		Message:     message,
		Status:      status,
		Description: err.Error(),
	}
}

func BadRequest(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     message,
		Status:      "BAD REQUEST",
		Description: description,
	}
}

func ResourceNotFound(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusNotFound,
		Success:     false,
		Message:     message,
		Status:      "NOT_FOUND",
		Description: description,
	}
}

func Unauthorized() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		Success:    false,
		Message:    "No connected wallet",
		Status:     "UNAUTHORISED",
	}
}

func SomethingWrong() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Success:    false,
		Message:    "Sorry, Something went wrong",
		Status:     "SOMETHING_WRONG",
	}
}

func Timeout() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusGatewayTimeout,
		Success:    false,
		Message:    "The operation did not complete in time",
		Status:     "TIMEOUT",
	}
}

func InvalidData(description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     "Invalid data passed",
		Status:      "VALIDATION_ERROR",
		Description: description,
	}
}

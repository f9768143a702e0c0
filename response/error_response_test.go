package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sft-ticketing-backend/model"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		code   int
		status string
	}{
		{model.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{model.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{model.ErrCapacity, http.StatusConflict, "CAPACITY_ERROR"},
		{model.ErrPriceCap, http.StatusUnprocessableEntity, "PRICE_CAP_ERROR"},
		{model.ErrNotActive, http.StatusConflict, "NOT_ACTIVE"},
		{model.ErrAlreadyVerified, http.StatusConflict, "ALREADY_VERIFIED"},
		{model.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
		{model.ErrPayment, http.StatusPaymentRequired, "PAYMENT_FAILED"},
		{model.ErrConflict, http.StatusConflict, "CONFLICT"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "SOMETHING_WRONG"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r := FromError(fmt.Errorf("purchaseTickets: %w", tt.err))
			assert.Equal(t, tt.code, r.StatusCode)
			assert.Equal(t, tt.status, r.Status)
			assert.False(t, r.Success)
		})
	}
}

func TestFromErrorKeepsErrorResponse(t *testing.T) {
	r := FromError(fmt.Errorf("wrapped: %w", Unauthorized()))
	assert.Equal(t, http.StatusUnauthorized, r.StatusCode)
}

func TestSend(t *testing.T) {
	w := httptest.NewRecorder()
	InvalidData("bad price").Send(context.Background(), w)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid data passed","status":"VALIDATION_ERROR","description":"bad price"}`, w.Body.String())
}

package middleware

import (
	"net/http"

	c "sft-ticketing-backend/context"
	"sft-ticketing-backend/logger"

	"github.com/google/uuid"
)

const CorrelationIDHeader = "Correlation-Id"

func SetCorrelationIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if len(correlationID) == 0 {
			correlationID = uuid.New().String()
			r.Header.Set(CorrelationIDHeader, correlationID)
			logger.Debugf(c.SetContextWithValue(r.Context(), c.ContextKeyCorrelationID, correlationID), "No correlation id provided. Generated a new one")
		}
		ctx := c.SetContextWithValue(r.Context(), c.ContextKeyCorrelationID, correlationID)
		w.Header().Set(CorrelationIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

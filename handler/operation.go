package handler

import (
	"fmt"
	"net/http"

	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/response"

	"github.com/gorilla/mux"
)

func GetOperation(tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		op, err := tracker.Get(ctx, mux.Vars(r)["operationID"])
		if err != nil {
			sendError(ctx, w, "getOperation", err)
			return
		}
		// other callers' operations are reported as missing
		if op.Identity != owner {
			sendError(ctx, w, "getOperation", fmt.Errorf("operation %s: %w", op.ID, model.ErrNotFound))
			return
		}

		response.SuccessResponse{Data: &response.Data{Operation: op}, StatusCode: http.StatusOK}.Send(w)
	}
}

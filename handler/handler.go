package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sft-ticketing-backend/config"
	c "sft-ticketing-backend/context"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/response"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

const OperationIDHeader = "Operation-Id"

type mutation func(ctx context.Context) (*response.Data, error)

func caller(ctx context.Context) model.Identity {
	return model.Identity(c.GetContextValue(ctx, c.ContextKeyIdentity))
}

// requireCaller sends 401 and reports false when no wallet is connected.
func requireCaller(ctx context.Context, w http.ResponseWriter) (model.Identity, bool) {
	id := caller(ctx)
	if id.Empty() {
		response.Unauthorized().Send(ctx, w)
		return "", false
	}
	return id, true
}

// decode reads the request envelope into v and checks its validate tags.
func decode(ctx context.Context, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(ctx, w, r, v, false)
}

// decodeOptional is decode for routes whose body may be empty.
func decodeOptional(ctx context.Context, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(ctx, w, r, v, true)
}

func decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		response.BadRequest("invalid request body", fmt.Sprintf("error unmarshalling request body: %+v", err)).Send(ctx, w)
		return false
	}
	if err := model.ValidateRequest(v); err != nil {
		sendError(ctx, w, "decode", err)
		return false
	}
	return true
}

func eventID(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["eventID"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.InvalidData(fmt.Sprintf("invalid event id: %v", raw)).Send(ctx, w)
		return 0, false
	}
	return id, true
}

func ticketID(r *http.Request) string {
	return mux.Vars(r)["ticketID"]
}

func sendError(ctx context.Context, w http.ResponseWriter, fn string, err error) {
	logger.Errorf(ctx, "%s: %+v", fn, err)
	response.FromError(err).Send(ctx, w)
}

// track runs fn as a tracked operation bounded by the operation timeout. The
// operation id is returned in the Operation-Id header on success and failure.
func track(w http.ResponseWriter, r *http.Request, tracker operation.Tracker, kind string, status int, fn mutation) {
	ctx := r.Context()

	op, err := tracker.Begin(ctx, kind, caller(ctx))
	if err != nil {
		logger.Errorf(ctx, "%s: unable to begin operation: %+v", kind, err)
		response.SomethingWrong().Send(ctx, w)
		return
	}
	w.Header().Set(OperationIDHeader, op.ID)

	opCtx, cancel := c.NewContextWithTimeOut(ctx, viper.GetDuration(config.OperationTimeout))
	defer cancel()

	data, err := fn(opCtx)
	if err != nil {
		resp := response.FromError(err)
		resp.OperationID = op.ID
		if ferr := tracker.Fail(ctx, op.ID, resp.Status, resp.Message); ferr != nil {
			logger.Warnf(ctx, "%s: unable to record failed operation %s: %+v", kind, op.ID, ferr)
		}
		logger.Errorf(ctx, "%s: %+v", kind, err)
		resp.Send(ctx, w)
		return
	}

	if cerr := tracker.Confirm(ctx, op.ID, data); cerr != nil {
		logger.Warnf(ctx, "%s: unable to record confirmed operation %s: %+v", kind, op.ID, cerr)
	}
	if done, gerr := tracker.Get(ctx, op.ID); gerr == nil {
		op = done
	}

	if data == nil {
		data = &response.Data{}
	}
	data.Operation = op
	response.SuccessResponse{Data: data, StatusCode: status}.Send(w)
}

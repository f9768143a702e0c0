package handler

import (
	"net/http"

	c "sft-ticketing-backend/context"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/response"
	"sft-ticketing-backend/wallet"
)

func ConnectWallet(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.ConnectWalletReq
		if !decode(ctx, w, r, &req) {
			return
		}

		s, err := sessions.Connect(ctx, req.Data.Identity, req.Data.Network)
		if err != nil {
			sendError(ctx, w, "connectWallet", err)
			return
		}

		response.SuccessResponse{
			Data:       &response.Data{Session: s},
			StatusCode: http.StatusCreated,
		}.Send(w)
	}
}

func DisconnectWallet(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := sessions.Disconnect(ctx, c.GetContextValue(ctx, c.ContextKeySessionToken)); err != nil {
			sendError(ctx, w, "disconnectWallet", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{}, StatusCode: http.StatusOK}.Send(w)
	}
}

func CurrentWallet(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		s, err := sessions.Session(ctx, c.GetContextValue(ctx, c.ContextKeySessionToken))
		if err != nil {
			response.Unauthorized().Send(ctx, w)
			return
		}

		response.SuccessResponse{Data: &response.Data{Session: s}, StatusCode: http.StatusOK}.Send(w)
	}
}

func SwitchNetwork(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.SwitchNetworkReq
		if !decode(ctx, w, r, &req) {
			return
		}

		s, err := sessions.SwitchNetwork(ctx, c.GetContextValue(ctx, c.ContextKeySessionToken), req.Data.Network)
		if err != nil {
			sendError(ctx, w, "switchNetwork", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Session: s}, StatusCode: http.StatusOK}.Send(w)
	}
}

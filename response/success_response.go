package response

import (
	"encoding/json"
	"net/http"

	"sft-ticketing-backend/gate"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/settlement"
	"sft-ticketing-backend/wallet"
)

type SuccessResponse struct {
	Data       *Data `json:"data"`
	StatusCode int   `json:"-"`
}

type Data struct {
	Event     *model.Event         `json:"event,omitempty"`
	Events    []model.Event        `json:"events,omitempty"`
	Ticket    *model.Ticket        `json:"ticket,omitempty"`
	Tickets   []model.Ticket       `json:"tickets,omitempty"`
	Listings  []model.Listing      `json:"listings,omitempty"`
	Receipt   *settlement.Receipt  `json:"receipt,omitempty"`
	Session   *wallet.Session      `json:"session,omitempty"`
	EntryCode *gate.EntryCode      `json:"entry_code,omitempty"`
	Operation *operation.Operation `json:"operation,omitempty"`
}

func (r SuccessResponse) Send(w http.ResponseWriter) {
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

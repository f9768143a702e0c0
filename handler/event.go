package handler

import (
	"context"
	"net/http"

	"sft-ticketing-backend/event"
	"sft-ticketing-backend/gate"
	"sft-ticketing-backend/marketplace"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/response"

	"github.com/gorilla/mux"
)

func CreateEvent(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		var req model.CreateEventReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "create_event", http.StatusCreated, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.CreateEvent(ctx, req.Data.Event, creator)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func ListEvents(registry *event.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		events, err := registry.ListEvents(ctx, model.EventFilter{Category: q.Get("category"), Sort: q.Get("sort")})
		if err != nil {
			sendError(ctx, w, "listEvents", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Events: events}, StatusCode: http.StatusOK}.Send(w)
	}
}

func GetEvent(registry *event.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		e, err := registry.GetEventByID(ctx, id)
		if err != nil {
			sendError(ctx, w, "getEvent", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Event: e}, StatusCode: http.StatusOK}.Send(w)
	}
}

func HostedEvents(registry *event.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		events, err := registry.GetHostedEvents(ctx, caller(ctx))
		if err != nil {
			sendError(ctx, w, "hostedEvents", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Events: events}, StatusCode: http.StatusOK}.Send(w)
	}
}

func DeactivateEvent(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		track(w, r, tracker, "deactivate_event", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.DeactivateEvent(ctx, id, creator)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func ActivateEvent(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		track(w, r, tracker, "activate_event", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.ActivateEvent(ctx, id, creator)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func SetResaleAllowed(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		var req model.ResaleAllowedReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "set_resale_allowed", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.SetResaleAllowed(ctx, id, creator, *req.Data.Allowed)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func AuthorizeGate(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		var req model.GateReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "authorize_gate", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.AuthorizeGate(ctx, id, creator, req.Data.Gate)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func RevokeGate(registry *event.Registry, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creator, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}
		gateIdentity := model.Identity(mux.Vars(r)["gate"])

		track(w, r, tracker, "revoke_gate", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			e, err := registry.RevokeGate(ctx, id, creator, gateIdentity)
			if err != nil {
				return nil, err
			}
			return &response.Data{Event: e}, nil
		})
	}
}

func PurchaseTickets(market *marketplace.Marketplace, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		buyer, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		var req model.PurchaseTicketsReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "purchase_tickets", http.StatusCreated, func(ctx context.Context) (*response.Data, error) {
			p, err := market.PurchaseTickets(ctx, id, buyer, req.Data.Quantity, req.Data.Offered)
			if err != nil {
				return nil, err
			}
			return &response.Data{Tickets: p.Tickets, Receipt: p.Receipt}, nil
		})
	}
}

func ResaleListings(market *marketplace.Marketplace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		listings, err := market.ListResaleTickets(ctx, id)
		if err != nil {
			sendError(ctx, w, "resaleListings", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Listings: listings}, StatusCode: http.StatusOK}.Send(w)
	}
}

func EntryCode(g *gate.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gateIdentity, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id, ok := eventID(ctx, w, r)
		if !ok {
			return
		}

		code, err := g.EntryCode(ctx, id, gateIdentity)
		if err != nil {
			sendError(ctx, w, "entryCode", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{EntryCode: code}, StatusCode: http.StatusOK}.Send(w)
	}
}

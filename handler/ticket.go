package handler

import (
	"context"
	"net/http"

	"sft-ticketing-backend/gate"
	"sft-ticketing-backend/marketplace"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/response"
	"sft-ticketing-backend/ticket"
)

func MyTickets(ledger *ticket.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		holder, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		tickets, err := ledger.TicketsByHolder(ctx, holder)
		if err != nil {
			sendError(ctx, w, "myTickets", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Tickets: tickets}, StatusCode: http.StatusOK}.Send(w)
	}
}

func GetTicket(ledger *ticket.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		t, err := ledger.GetTicket(ctx, ticketID(r))
		if err != nil {
			sendError(ctx, w, "getTicket", err)
			return
		}

		response.SuccessResponse{Data: &response.Data{Ticket: t}, StatusCode: http.StatusOK}.Send(w)
	}
}

func ToggleResale(market *marketplace.Marketplace, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		holder, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		track(w, r, tracker, "toggle_resale", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			t, err := market.SetResale(ctx, id, holder)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: t}, nil
		})
	}
}

func ListForResale(market *marketplace.Marketplace, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		seller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		var req model.ListForResaleReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "list_for_resale", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			t, err := market.ListTicketForResale(ctx, id, seller, req.Data.Price)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: t}, nil
		})
	}
}

func PurchaseResale(market *marketplace.Marketplace, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		buyer, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		var req model.PurchaseResaleReq
		if !decode(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "purchase_resale", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			p, err := market.PurchaseResale(ctx, id, buyer, req.Data.Offered)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: &p.Tickets[0], Receipt: p.Receipt}, nil
		})
	}
}

func VerifyTicketEntry(g *gate.Gate, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gateIdentity, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		track(w, r, tracker, "verify_ticket_entry", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			t, err := g.VerifyTicketEntry(ctx, id, gateIdentity)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: t}, nil
		})
	}
}

func ValidateTicket(g *gate.Gate, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gateIdentity, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		track(w, r, tracker, "validate_ticket", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			t, err := g.ValidateTicket(ctx, id, gateIdentity)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: t}, nil
		})
	}
}

func VerifyMyTicket(g *gate.Gate, tracker operation.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		holder, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		id := ticketID(r)

		// the body is optional when entry codes are not required
		var req model.VerifyTicketReq
		if !decodeOptional(ctx, w, r, &req) {
			return
		}

		track(w, r, tracker, "verify_my_ticket", http.StatusOK, func(ctx context.Context) (*response.Data, error) {
			t, err := g.VerifyMyTicket(ctx, id, holder, req.Data.Code)
			if err != nil {
				return nil, err
			}
			return &response.Data{Ticket: t}, nil
		})
	}
}

package router

import (
	"context"
	"fmt"
	"net/http"

	"sft-ticketing-backend/config"
	"sft-ticketing-backend/event"
	"sft-ticketing-backend/factory"
	"sft-ticketing-backend/gate"
	"sft-ticketing-backend/handler"
	"sft-ticketing-backend/healthcheck"
	"sft-ticketing-backend/marketplace"
	"sft-ticketing-backend/middleware"
	"sft-ticketing-backend/response"
	"sft-ticketing-backend/ticket"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

// Router returns the router for all the API handler.
func Router(ctx context.Context, f factory.Factory) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SetCorrelationIDHeader)
	r.Use(middleware.PanicHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		response.ResourceNotFound(fmt.Sprintf("The requested resource was not found: path: %s, method: %s", req.URL.Path, req.Method), "The requested resource was not found!").Send(req.Context(), w)
	})

	r.Use(middleware.ResponseTimeLogging)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SetContentTypeHeader)

	s := f.Store(ctx)
	publisher := f.Publisher(ctx)
	tracker := f.Tracker(ctx)
	sessions := f.Sessions(ctx)

	registry := event.NewRegistry(s).WithPublisher(publisher)
	ledger := ticket.NewLedger(s)
	market := marketplace.New(s, ledger, f.Payer(ctx), publisher)
	entrance := gate.New(s, ledger, gate.Config{
		Secret:       viper.GetString(config.Secret),
		CodeRequired: viper.GetBool(config.EntryCodeRequired),
		Period:       viper.GetUint(config.EntryCodePeriod),
		Publisher:    publisher,
	})

	r.HandleFunc("/healthcheck", healthcheck.Self).Methods(http.MethodGet)
	baseRouter := r.PathPrefix("/v1").Subrouter()
	baseRouter.Use(middleware.Identity(sessions))

	walletRouter := baseRouter.PathPrefix("/wallet").Subrouter()
	walletRouter.HandleFunc("/connect", handler.ConnectWallet(sessions)).Methods(http.MethodPost)
	walletRouter.HandleFunc("/disconnect", handler.DisconnectWallet(sessions)).Methods(http.MethodPost)
	walletRouter.HandleFunc("/me", handler.CurrentWallet(sessions)).Methods(http.MethodGet)
	walletRouter.HandleFunc("/network", handler.SwitchNetwork(sessions)).Methods(http.MethodPost)

	eventRouter := baseRouter.PathPrefix("/events").Subrouter()
	eventRouter.HandleFunc("", handler.CreateEvent(registry, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("", handler.ListEvents(registry)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/hosted", handler.HostedEvents(registry)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{eventID:[0-9]+}", handler.GetEvent(registry)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/deactivate", handler.DeactivateEvent(registry, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/activate", handler.ActivateEvent(registry, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/resale-allowed", handler.SetResaleAllowed(registry, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/gates", handler.AuthorizeGate(registry, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/gates/{gate}", handler.RevokeGate(registry, tracker)).Methods(http.MethodDelete)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/tickets", handler.PurchaseTickets(market, tracker)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/resale", handler.ResaleListings(market)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{eventID:[0-9]+}/entry-code", handler.EntryCode(entrance)).Methods(http.MethodGet)

	ticketRouter := baseRouter.PathPrefix("/tickets").Subrouter()
	ticketRouter.HandleFunc("", handler.MyTickets(ledger)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/{ticketID}", handler.GetTicket(ledger)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/{ticketID}/resale/toggle", handler.ToggleResale(market, tracker)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/{ticketID}/resale", handler.ListForResale(market, tracker)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/{ticketID}/purchase", handler.PurchaseResale(market, tracker)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/{ticketID}/verify/gate", handler.VerifyTicketEntry(entrance, tracker)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/{ticketID}/validate", handler.ValidateTicket(entrance, tracker)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/{ticketID}/verify", handler.VerifyMyTicket(entrance, tracker)).Methods(http.MethodPost)

	baseRouter.HandleFunc("/operations/{operationID}", handler.GetOperation(tracker)).Methods(http.MethodGet)

	return r
}

package constants

// Vault secret keys for a custodial wallet account.
const (
	AccountAddress     = "account_address"
	PrivateKey         = "private_key"
	SecurityPassphrase = "security_passphrase"
)

// Routing keys of the domain events published after a committed mutation.
const (
	EventCreated       = "event.created"
	EventDeactivated   = "event.deactivated"
	EventActivated     = "event.activated"
	EventUpdated       = "event.updated"
	TicketIssued       = "ticket.issued"
	TicketListed       = "ticket.listed"
	TicketResaleToggle = "ticket.resale_toggled"
	TicketSold         = "ticket.sold"
	TicketVerified     = "ticket.verified"
)

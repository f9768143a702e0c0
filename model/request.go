package model

// Request bodies follow the {"data": {...}} envelope.

type CreateEventReq struct {
	Data struct {
		Event *CreateEventRequest `json:"event,omitempty" validate:"required"`
	} `json:"data"`
}

type ConnectWalletReq struct {
	Data struct {
		Identity Identity `json:"identity" validate:"notblank"`
		Network  string   `json:"network,omitempty"`
	} `json:"data"`
}

type SwitchNetworkReq struct {
	Data struct {
		Network string `json:"network" validate:"notblank"`
	} `json:"data"`
}

type PurchaseTicketsReq struct {
	Data struct {
		Quantity uint64 `json:"quantity" validate:"gt=0"`
		Offered  Amount `json:"offered" validate:"gt=0"`
	} `json:"data"`
}

type ListForResaleReq struct {
	Data struct {
		Price Amount `json:"price" validate:"gt=0"`
	} `json:"data"`
}

type PurchaseResaleReq struct {
	Data struct {
		Offered Amount `json:"offered" validate:"gt=0"`
	} `json:"data"`
}

type VerifyTicketReq struct {
	Data struct {
		Code string `json:"code,omitempty" validate:"omitempty,numeric"`
	} `json:"data"`
}

type ResaleAllowedReq struct {
	Data struct {
		Allowed *bool `json:"allowed" validate:"required"`
	} `json:"data"`
}

type GateReq struct {
	Data struct {
		Gate Identity `json:"gate" validate:"notblank"`
	} `json:"data"`
}

package algorand

import (
	"context"
	"fmt"

	"sft-ticketing-backend/model"

	"github.com/algorand/go-algorand-sdk/crypto"
	"github.com/algorand/go-algorand-sdk/mnemonic"
)

// Account is a custodial signing account.
type Account struct {
	AccountAddress     string
	PrivateKey         string
	SecurityPassphrase string
}

// Keystore resolves the signing account of an identity.
type Keystore interface {
	Account(ctx context.Context, identity model.Identity) (*Account, error)
}

func GenerateAccount() (*Account, error) {
	account := crypto.GenerateAccount()
	paraphrase, err := mnemonic.FromPrivateKey(account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generateAccount: error generating account: %w", err)
	}

	return &Account{
		AccountAddress:     account.Address.String(),
		PrivateKey:         string(account.PrivateKey),
		SecurityPassphrase: paraphrase,
	}, nil
}

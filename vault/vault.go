package vault

import (
	"context"
	"fmt"
	"path"

	"sft-ticketing-backend/algorand"
	"sft-ticketing-backend/constants"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"

	"github.com/hashicorp/vault/api"
)

type logical interface {
	Read(path string) (*api.Secret, error)
	Write(path string, data map[string]interface{}) (*api.Secret, error)
}

// Vault keeps custodial wallet accounts under UserPath, one secret per
// identity.
type Vault struct {
	UserPath      string
	AutoProvision bool
	logical       logical
}

func New(token, unsealKey, address, userPath string, autoProvision bool) (*Vault, error) {
	config := &api.Config{
		Address: address,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("new: error initializing vault: %w", err)
	}

	client.SetToken(token)

	s := client.Sys()
	status, err := s.SealStatus()
	if err != nil {
		return nil, fmt.Errorf("new: error getting seal status: %w", err)
	}

	if status.Sealed {
		unsealResponse, err := s.Unseal(unsealKey)
		if err != nil {
			return nil, fmt.Errorf("new: error getting unseal response: %w", err)
		}
		if unsealResponse.Sealed {
			return nil, fmt.Errorf("new: vault unseal unsuccesfull")
		}
	}

	err = createIfNotExists(client, userPath)
	if err != nil {
		return nil, fmt.Errorf("new: unable to mount user path: %w", err)
	}

	return &Vault{UserPath: userPath, AutoProvision: autoProvision, logical: client.Logical()}, nil
}

// Account returns the signing account of identity. With AutoProvision set a
// missing account is generated and stored.
func (v *Vault) Account(ctx context.Context, identity model.Identity) (*algorand.Account, error) {
	if identity.Empty() {
		return nil, fmt.Errorf("account: empty identity: %w", model.ErrValidation)
	}

	secret, err := v.logical.Read(v.path(identity))
	if err != nil {
		return nil, fmt.Errorf("account: unable to read account of %s: %w", identity, err)
	}
	if secret != nil && secret.Data != nil {
		return fromSecret(identity, secret.Data)
	}

	if !v.AutoProvision {
		return nil, fmt.Errorf("account: no account stored for %s: %w", identity, model.ErrNotFound)
	}
	return v.provision(ctx, identity)
}

func (v *Vault) provision(ctx context.Context, identity model.Identity) (*algorand.Account, error) {
	acc, err := algorand.GenerateAccount()
	if err != nil {
		return nil, fmt.Errorf("provision: %w", err)
	}

	_, err = v.logical.Write(v.path(identity), map[string]interface{}{
		constants.AccountAddress:     acc.AccountAddress,
		constants.PrivateKey:         acc.PrivateKey,
		constants.SecurityPassphrase: acc.SecurityPassphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("provision: unable to store account of %s: %w", identity, err)
	}

	logger.Infof(ctx, "provision: account %s stored for %s", acc.AccountAddress, identity)
	return acc, nil
}

func (v *Vault) path(identity model.Identity) string {
	return path.Join(v.UserPath, string(identity))
}

func fromSecret(identity model.Identity, data map[string]interface{}) (*algorand.Account, error) {
	address, _ := data[constants.AccountAddress].(string)
	passphrase, _ := data[constants.SecurityPassphrase].(string)
	if address == "" || passphrase == "" {
		return nil, fmt.Errorf("account: incomplete secret for %s", identity)
	}
	privateKey, _ := data[constants.PrivateKey].(string)
	return &algorand.Account{
		AccountAddress:     address,
		PrivateKey:         privateKey,
		SecurityPassphrase: passphrase,
	}, nil
}

func createIfNotExists(client *api.Client, path string) error {
	mounts, err := client.Sys().ListMounts()
	if err != nil {
		return fmt.Errorf("createIfNotExists: unable to list mounts: %w", err)
	}

	if _, ok := mounts[path+"/"]; !ok {
		err = client.Sys().Mount(path, &api.MountInput{Type: "kv"})
		if err != nil {
			return fmt.Errorf("createIfNotExists: unable to create path: %w", err)
		}
	}

	return nil
}

package vault

import (
	"context"
	"errors"
	"testing"

	"sft-ticketing-backend/constants"
	"sft-ticketing-backend/model"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogical struct {
	secrets map[string]map[string]interface{}
	readErr error
}

func (m *mockLogical) Read(path string) (*api.Secret, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.secrets[path]
	if !ok {
		return nil, nil
	}
	return &api.Secret{Data: data}, nil
}

func (m *mockLogical) Write(path string, data map[string]interface{}) (*api.Secret, error) {
	m.secrets[path] = data
	return &api.Secret{}, nil
}

func TestAccountStored(t *testing.T) {
	l := &mockLogical{secrets: map[string]map[string]interface{}{
		"wallets/bob": {
			constants.AccountAddress:     "ADDR",
			constants.SecurityPassphrase: "words",
		},
	}}
	v := &Vault{UserPath: "wallets", logical: l}

	acc, err := v.Account(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "ADDR", acc.AccountAddress)
	assert.Equal(t, "words", acc.SecurityPassphrase)
}

func TestAccountMissing(t *testing.T) {
	v := &Vault{UserPath: "wallets", logical: &mockLogical{secrets: map[string]map[string]interface{}{}}}

	_, err := v.Account(context.Background(), "bob")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = v.Account(context.Background(), "")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestAccountAutoProvision(t *testing.T) {
	l := &mockLogical{secrets: map[string]map[string]interface{}{}}
	v := &Vault{UserPath: "wallets", AutoProvision: true, logical: l}

	first, err := v.Account(context.Background(), "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccountAddress)
	require.Contains(t, l.secrets, "wallets/bob")

	again, err := v.Account(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, first.AccountAddress, again.AccountAddress)
}

func TestAccountReadError(t *testing.T) {
	v := &Vault{UserPath: "wallets", logical: &mockLogical{readErr: errors.New("sealed")}}
	_, err := v.Account(context.Background(), "bob")
	assert.Error(t, err)
}

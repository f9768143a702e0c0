package algorand

import (
	"context"
	"fmt"
	"time"

	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/settlement"

	"github.com/algorand/go-algorand-sdk/client/algod"
	"github.com/algorand/go-algorand-sdk/client/algod/models"
	"github.com/algorand/go-algorand-sdk/crypto"
	"github.com/algorand/go-algorand-sdk/mnemonic"
	"github.com/algorand/go-algorand-sdk/transaction"
	"github.com/algorand/go-algorand-sdk/types"
)

const validRounds = 1000

// algodClient is the subset of algod.Client used to settle payments.
type algodClient interface {
	SuggestedParams(headers ...*algod.Header) (models.TransactionParams, error)
	SendRawTransaction(stx []byte, headers ...*algod.Header) (models.TransactionID, error)
	PendingTransactionInformation(txID string, headers ...*algod.Header) (models.Transaction, error)
	Status(headers ...*algod.Header) (models.NodeStatus, error)
	StatusAfterBlock(round uint64, headers ...*algod.Header) (models.NodeStatus, error)
}

// Payer settles payments as Algorand payment transactions. Amounts map one
// to one onto microAlgos.
type Payer struct {
	client             algodClient
	keys               Keystore
	minFee             uint64
	confirmationRounds uint64
}

func New(apiAddress, apiKey string, keys Keystore, minFee, confirmationRounds uint64) (*Payer, error) {
	headers := []*algod.Header{{Key: "X-API-Key", Value: apiKey}}
	client, err := algod.MakeClientWithHeaders(apiAddress, "", headers)
	if err != nil {
		return nil, fmt.Errorf("new: error connecting to algo: %w", err)
	}
	return newPayer(client, keys, minFee, confirmationRounds), nil
}

func newPayer(client algodClient, keys Keystore, minFee, confirmationRounds uint64) *Payer {
	if confirmationRounds == 0 {
		confirmationRounds = 10
	}
	return &Payer{client: client, keys: keys, minFee: minFee, confirmationRounds: confirmationRounds}
}

// Pay signs with the payer's custodial account and waits for confirmation.
// The payee is either an Algorand address or an identity known to the
// keystore.
func (a *Payer) Pay(ctx context.Context, p settlement.Payment) (*settlement.Receipt, error) {
	from, err := a.keys.Account(ctx, p.From)
	if err != nil {
		return nil, fmt.Errorf("pay: no signing account for %s: %v: %w", p.From, err, model.ErrPayment)
	}
	to, err := a.address(ctx, p.To)
	if err != nil {
		return nil, fmt.Errorf("pay: no address for %s: %v: %w", p.To, err, model.ErrPayment)
	}

	txParams, err := a.client.SuggestedParams()
	if err != nil {
		return nil, fmt.Errorf("pay: error getting suggested tx params: %v: %w", err, model.ErrPayment)
	}

	firstValidRound := txParams.LastRound
	lastValidRound := firstValidRound + validRounds
	txn, err := transaction.MakePaymentTxnWithFlatFee(from.AccountAddress, to, a.minFee, uint64(p.Amount),
		firstValidRound, lastValidRound, []byte(p.Memo), "", txParams.GenesisID, txParams.GenesisHash)
	if err != nil {
		return nil, fmt.Errorf("pay: error creating transaction: %v: %w", err, model.ErrPayment)
	}

	privateKey, err := mnemonic.ToPrivateKey(from.SecurityPassphrase)
	if err != nil {
		return nil, fmt.Errorf("pay: error getting private key from mnemonic: %v: %w", err, model.ErrPayment)
	}

	txID, stx, err := crypto.SignTransaction(privateKey, txn)
	if err != nil {
		return nil, fmt.Errorf("pay: failed to sign transaction: %v: %w", err, model.ErrPayment)
	}
	logger.Debugf(ctx, "pay: signed txid: %s", txID)

	sendResponse, err := a.client.SendRawTransaction(stx, &algod.Header{Key: "Content-Type", Value: "application/x-binary"})
	if err != nil {
		return nil, fmt.Errorf("pay: failed to send transaction: %v: %w", err, model.ErrPayment)
	}

	round, err := a.waitForConfirmation(ctx, sendResponse.TxID)
	if err != nil {
		return nil, fmt.Errorf("pay: transaction %s: %v: %w", sendResponse.TxID, err, model.ErrPayment)
	}

	logger.Infof(ctx, "pay: %s from %s to %s confirmed in round %d", p.Amount, p.From, p.To, round)
	return &settlement.Receipt{TxID: sendResponse.TxID, Amount: p.Amount, ConfirmedAt: time.Now().UTC()}, nil
}

func (a *Payer) address(ctx context.Context, id model.Identity) (string, error) {
	if _, err := types.DecodeAddress(string(id)); err == nil {
		return string(id), nil
	}
	acc, err := a.keys.Account(ctx, id)
	if err != nil {
		return "", err
	}
	return acc.AccountAddress, nil
}

// waitForConfirmation polls until txID is confirmed, ctx is done or the
// confirmation window has passed.
func (a *Payer) waitForConfirmation(ctx context.Context, txID string) (uint64, error) {
	nodeStatus, err := a.client.Status()
	if err != nil {
		return 0, fmt.Errorf("error getting algod status: %w", err)
	}
	deadline := nodeStatus.LastRound + a.confirmationRounds
	round := nodeStatus.LastRound

	for round <= deadline {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		pt, err := a.client.PendingTransactionInformation(txID)
		if err != nil {
			logger.Infof(ctx, "waiting for confirmation... (pool error, if any): %s", err)
		} else if pt.ConfirmedRound > 0 {
			return pt.ConfirmedRound, nil
		} else if pt.PoolError != "" {
			return 0, fmt.Errorf("rejected by the pool: %s", pt.PoolError)
		}

		round++
		if _, err := a.client.StatusAfterBlock(round); err != nil {
			return 0, fmt.Errorf("error waiting for round %d: %w", round, err)
		}
	}
	return 0, fmt.Errorf("not confirmed after %d rounds", a.confirmationRounds)
}

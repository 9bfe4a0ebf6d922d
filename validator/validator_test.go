package validator

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/vrrb-consensus/signer"
	"github.com/vrrb-io/vrrb-consensus/types"
)

type fakeState struct {
	accounts map[string]Account
}

func (f *fakeState) Account(address string) (Account, bool) {
	a, ok := f.accounts[address]
	return a, ok
}

type fakeDup struct {
	seen map[types.TxnDigest]bool
}

func (f *fakeDup) Seen(d types.TxnDigest) bool { return f.seen[d] }

func signedTxn(t *testing.T, s *signer.Signer, amount int64, nonce uint64) types.Transaction {
	t.Helper()
	txn := types.Transaction{
		Timestamp:     1,
		SenderAddress: "sender",
		SenderPubKey:  s.PublicKey(),
		ReceiverAddr:  "receiver",
		Amount:        big.NewInt(amount),
		Token:         types.DefaultToken,
		Nonce:         nonce,
	}
	sig, err := s.Sign(txn.SigningMessage())
	require.NoError(t, err)
	txn.Signature = sig
	return txn
}

func TestValidatePreservesOrderAndAcceptsValid(t *testing.T) {
	s, err := signer.New(nil)
	require.NoError(t, err)

	state := &fakeState{accounts: map[string]Account{
		"sender": {Nonce: 0, Balance: big.NewInt(100)},
	}}
	dup := &fakeDup{seen: map[types.TxnDigest]bool{}}

	txns := []types.Transaction{
		signedTxn(t, s, 10, 1),
		signedTxn(t, s, 20, 2),
		signedTxn(t, s, 30, 3),
	}

	core := New(4, nil)
	results, err := core.Validate(context.Background(), txns, state, dup)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, txns[i].Amount, r.Txn.Amount)
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	s, err := signer.New(nil)
	require.NoError(t, err)
	state := &fakeState{accounts: map[string]Account{"sender": {Nonce: 0, Balance: big.NewInt(100)}}}

	txn := signedTxn(t, s, 10, 1)
	txn.Signature[len(txn.Signature)-1] ^= 0xFF

	core := New(2, nil)
	results, err := core.Validate(context.Background(), []types.Transaction{txn}, state, nil)
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrBadSignature)
}

func TestValidateRejectsInsufficientBalance(t *testing.T) {
	s, err := signer.New(nil)
	require.NoError(t, err)
	state := &fakeState{accounts: map[string]Account{"sender": {Nonce: 0, Balance: big.NewInt(5)}}}

	txn := signedTxn(t, s, 10, 1)
	core := New(2, nil)
	results, err := core.Validate(context.Background(), []types.Transaction{txn}, state, nil)
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrInsufficientBalance)
}

func TestValidateRejectsStaleNonce(t *testing.T) {
	s, err := signer.New(nil)
	require.NoError(t, err)
	state := &fakeState{accounts: map[string]Account{"sender": {Nonce: 5, Balance: big.NewInt(100)}}}

	txn := signedTxn(t, s, 10, 5)
	core := New(2, nil)
	results, err := core.Validate(context.Background(), []types.Transaction{txn}, state, nil)
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrNonceOutOfOrder)
}

func TestValidateRejectsDuplicate(t *testing.T) {
	s, err := signer.New(nil)
	require.NoError(t, err)
	txn := signedTxn(t, s, 10, 1)

	dup := &fakeDup{seen: map[types.TxnDigest]bool{txn.Digest(): true}}
	core := New(2, nil)
	results, err := core.Validate(context.Background(), []types.Transaction{txn}, nil, dup)
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrDuplicate)
}

func TestTransactionKindNotFound(t *testing.T) {
	_, err := TransactionKind(types.TxnDigest{}, emptyMempool{})
	require.ErrorIs(t, err, ErrNotFound)
}

type emptyMempool struct{}

func (emptyMempool) Transaction(types.TxnDigest) (types.Transaction, bool) {
	return types.Transaction{}, false
}

// Package validator implements C4: a parallel transaction validator that
// fans a batch out across a fixed worker pool while preserving input order
// in its output, grounded on the teacher/pack's errgroup-based fan-out
// idiom (see golang.org/x/sync/errgroup usage in the pack's horcrux
// integration tests) rather than the original's per-core OS-thread/channel
// design, which Go's goroutine scheduler makes unnecessary.
package validator

import (
	"context"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/sync/errgroup"

	"github.com/vrrb-io/vrrb-consensus/common/log"
	"github.com/vrrb-io/vrrb-consensus/signer"
	"github.com/vrrb-io/vrrb-consensus/types"
)

// Account is the narrow slice of state a validator needs per sender.
type Account struct {
	Nonce   uint64
	Balance *big.Int
}

// StateReader is a snapshot read handle over account state. Implementations
// must be safe for concurrent use by every worker in a batch.
type StateReader interface {
	Account(address string) (Account, bool)
}

// MempoolReader resolves a digest to its full transaction.
type MempoolReader interface {
	Transaction(digest types.TxnDigest) (types.Transaction, bool)
}

// DuplicateChecker reports whether a digest has already been accepted
// (confirmed, or already validated earlier in the same batch).
type DuplicateChecker interface {
	Seen(digest types.TxnDigest) bool
}

// Result pairs a transaction with its validation outcome. Err is nil when
// the transaction is valid.
type Result struct {
	Txn types.Transaction
	Err error
}

// Core fans a transaction batch out over a fixed number of worker
// goroutines sharing the read-only account-state snapshot and duplicate
// checker passed to Validate.
type Core struct {
	workers int
	log     log.Logger
}

// New builds a Core with the given worker fan-out. workers < 1 is clamped
// to 1.
func New(workers int, l log.Logger) *Core {
	if workers < 1 {
		workers = 1
	}
	if l == nil {
		l = log.DefaultLogger()
	}
	return &Core{workers: workers, log: l.Named("validator")}
}

// Validate checks every transaction in txns against state and dup, in
// parallel, and returns one Result per input transaction in the same
// order as txns. A worker failure (e.g. a cancelled context) aborts the
// whole batch; a single transaction being invalid never does — that is
// recorded in its own Result and validation of the rest proceeds.
func (c *Core) Validate(ctx context.Context, txns []types.Transaction, state StateReader, dup DuplicateChecker) ([]Result, error) {
	results := make([]Result, len(txns))

	group, groupCtx := errgroup.WithContext(ctx)
	work := make(chan int)

	group.Go(func() error {
		defer close(work)
		for i := range txns {
			select {
			case work <- i:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	for w := 0; w < c.workers; w++ {
		group.Go(func() error {
			for {
				select {
				case i, ok := <-work:
					if !ok {
						return nil
					}
					results[i] = Result{Txn: txns[i], Err: validateOne(txns[i], state, dup)}
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func validateOne(txn types.Transaction, state StateReader, dup DuplicateChecker) error {
	digest := txn.Digest()

	if dup != nil && dup.Seen(digest) {
		return ErrDuplicate
	}

	pub, err := secp256k1.ParsePubKey(txn.SenderPubKey)
	if err != nil {
		return ErrMalformed
	}
	if !signer.Verify(pub, txn.SigningMessage(), txn.Signature) {
		return ErrBadSignature
	}

	if state != nil {
		account, ok := state.Account(txn.SenderAddress)
		if !ok {
			return ErrInsufficientBalance
		}
		if txn.Nonce <= account.Nonce {
			return ErrNonceOutOfOrder
		}
		if account.Balance == nil || account.Balance.Cmp(txn.Amount) < 0 {
			return ErrInsufficientBalance
		}
	}

	return nil
}

// TransactionKind fetches digest from mempool and returns its typed
// transaction, or a ValidationError if it cannot be resolved.
func TransactionKind(digest types.TxnDigest, mempool MempoolReader) (types.Transaction, error) {
	txn, ok := mempool.Transaction(digest)
	if !ok {
		return types.Transaction{}, ErrNotFound
	}
	return txn, nil
}

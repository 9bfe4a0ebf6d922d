package validator

import "errors"

// ValidationError sentinels, per spec.md §7.
var (
	ErrBadSignature     = errors.New("validator: signature does not verify")
	ErrInsufficientBalance = errors.New("validator: insufficient balance")
	ErrNonceOutOfOrder  = errors.New("validator: nonce out of order")
	ErrDuplicate        = errors.New("validator: duplicate transaction digest")
	ErrNotFound         = errors.New("validator: transaction not found in mempool")
	ErrMalformed        = errors.New("validator: malformed transaction")
)

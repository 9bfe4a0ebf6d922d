package block

import "errors"

// BlockError sentinels, per spec.md §7.
var (
	ErrMissingProposals  = errors.New("block: one or more referenced proposals are missing")
	ErrInvalidTxns       = errors.New("block: declared txns do not match resolver output")
	ErrInvalidClaims     = errors.New("block: declared claims do not match resolver output")
	ErrNotTopMiner       = errors.New("block: miner is not in the current election window")
	ErrInvalidBlockReward = errors.New("block: invalid reward allocation")
)

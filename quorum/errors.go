package quorum

import "errors"

// ElectionError sentinels, per spec.md §7.
var (
	ErrInvalidSeed            = errors.New("quorum: invalid seed")
	ErrNotEnoughEligibleClaims = errors.New("quorum: not enough eligible claims")
	ErrQuorumAlreadyAssigned  = errors.New("quorum: node already assigned to a quorum")
)

// Package types holds the wire/data model shared by every consensus
// component: claims, transactions, votes, blocks and certificates. It plays
// the role the teacher's common/key package plays for drand: one place every
// subsystem imports for the shapes it passes around.
package types

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"
)

// NodeId is the stable per-node handle: the hex-encoded hash of the node's
// long-term ECDSA public key.
type NodeId string

// Eligibility is the role a Claim grants its owner in an election.
type Eligibility int

const (
	EligibilityNone Eligibility = iota
	EligibilityValidator
	EligibilityMiner
)

func (e Eligibility) String() string {
	switch e {
	case EligibilityMiner:
		return "miner"
	case EligibilityValidator:
		return "validator"
	default:
		return "none"
	}
}

// Seed is the per-round election seed derived by the quorum module.
type Seed uint64

// Claim is a node's published right to participate: stake-and-eligibility
// anchored to a public key, address and network endpoint.
type Claim struct {
	OwnerPublicKey []byte
	Address        string
	IPEndpoint     string
	// Signature is the owner's signature over (Address || IPEndpoint).
	Signature   []byte
	Eligibility Eligibility
	NodeId      NodeId
}

// StakeUpdateKind distinguishes additive from subtractive stake changes.
// Supplemented from original_source crates/vrrb_core/src/staking.rs, which
// the distilled spec.md mentions ("eligibility may change through
// stake-update records") but does not itself shape.
type StakeUpdateKind int

const (
	StakeAdd StakeUpdateKind = iota
	StakeWithdraw
)

// StakeUpdate is a certified change to a claim's stake, which may in turn
// flip its Eligibility.
type StakeUpdate struct {
	NodeId      NodeId
	Kind        StakeUpdateKind
	Amount      *big.Int
	Certificate []byte
}

// ApplyStakeUpdate returns a copy of c with Eligibility set to
// newEligibility, once update is checked to target c and to carry a
// non-negative amount. The election-eligibility thresholds are left to the
// caller (the state store owns balances), which chooses newEligibility;
// nothing here is derived from the stake amount, matching the spec's claim that "a claim is
// immutable once published; eligibility may change through stake-update
// records" rather than by mutating amount fields on Claim itself.
func (c Claim) ApplyStakeUpdate(update StakeUpdate, newEligibility Eligibility) (Claim, error) {
	if update.NodeId != c.NodeId {
		return Claim{}, errors.New("types: stake update does not target this claim")
	}
	if update.Amount == nil || update.Amount.Sign() < 0 {
		return Claim{}, errors.New("types: stake update amount must be non-negative")
	}
	next := c
	next.Eligibility = newEligibility
	return next, nil
}

// GetElectionResult returns the deterministic 256-bit pointer used to rank
// this claim in an election, derived from (claim, seed).
//
// pointer = SHA256(OwnerPublicKey || Address || seed_be64)
//
// interpreted as a big-endian unsigned integer. Smaller pointers win.
func (c Claim) GetElectionResult(seed Seed) *big.Int {
	h := sha256.New()
	h.Write(c.OwnerPublicKey)
	h.Write([]byte(c.Address))
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], uint64(seed))
	h.Write(seedBytes[:])
	sum := h.Sum(nil)
	return new(big.Int).SetBytes(sum)
}

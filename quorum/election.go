// Package quorum implements C3: seed derivation, claim-pointer election of
// miners and quorums, and peer-to-quorum bootstrap assignment.
package quorum

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// MinerElectionWindow bounds how many top-ranked miner claims stay eligible
// as backups, per spec.md's adopted constant (the original source truncates
// to 5 with no configuration knob).
const MinerElectionWindow = 5

// ElectedClaim pairs a claim with the pointer that ranked it.
type ElectedClaim struct {
	Pointer *big.Int
	Claim   types.Claim
}

// ElectMiner ranks every Miner-eligible claim by its election pointer under
// seed, ascending, breaking ties by NodeId. The first MinerElectionWindow
// entries are the backup window; index 0 is the elected miner.
//
// Grounded on spec.md §4.3 and the Rust "elect_identical_quorums"/
// "elect_quorum" tests in original_source crates/consensus/quorum/src/lib.rs,
// which assert the same (seed, claims) input always yields the same winner.
func ElectMiner(claims []types.Claim, seed types.Seed) ([]ElectedClaim, error) {
	eligible := make([]types.Claim, 0, len(claims))
	for _, c := range claims {
		if c.Eligibility == types.EligibilityMiner {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("quorum: %w: no miner-eligible claims", ErrNotEnoughEligibleClaims)
	}

	ranked := make([]ElectedClaim, len(eligible))
	for i, c := range eligible {
		ranked[i] = ElectedClaim{Pointer: c.GetElectionResult(seed), Claim: c}
	}

	sort.Slice(ranked, func(i, j int) bool {
		cmp := ranked[i].Pointer.Cmp(ranked[j].Pointer)
		if cmp != 0 {
			return cmp < 0
		}
		return ranked[i].Claim.NodeId < ranked[j].Claim.NodeId
	})

	window := MinerElectionWindow
	if window > len(ranked) {
		window = len(ranked)
	}
	return ranked[:window], nil
}

// ElectedQuorums is the result of ElectQuorums: one Harvester quorum and the
// ordered Farmer quorums carved from the remaining claims.
type ElectedQuorums struct {
	Harvester *types.Quorum
	Farmers   []*types.Quorum
}

// ElectQuorums partitions the top k = harvesterSize + (farmerCount*farmerSize)
// claims whose eligibility is not None (Validator or Miner), ranked by
// election pointer under seed, into one
// Harvester quorum of size harvesterSize followed by farmerCount Farmer
// quorums of size farmerSize each.
func ElectQuorums(claims []types.Claim, seed types.Seed, harvesterSize, farmerCount, farmerSize int) (*ElectedQuorums, error) {
	k := harvesterSize + farmerCount*farmerSize
	eligible := make([]types.Claim, 0, len(claims))
	for _, c := range claims {
		if c.Eligibility != types.EligibilityNone {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) < k {
		return nil, fmt.Errorf("quorum: %w: need %d eligible claims, have %d", ErrNotEnoughEligibleClaims, k, len(eligible))
	}

	ranked := make([]ElectedClaim, len(eligible))
	for i, c := range eligible {
		ranked[i] = ElectedClaim{Pointer: c.GetElectionResult(seed), Claim: c}
	}
	sort.Slice(ranked, func(i, j int) bool {
		cmp := ranked[i].Pointer.Cmp(ranked[j].Pointer)
		if cmp != 0 {
			return cmp < 0
		}
		return ranked[i].Claim.NodeId < ranked[j].Claim.NodeId
	})
	top := ranked[:k]

	harvester := &types.Quorum{Kind: types.QuorumHarvester, Members: make(map[types.NodeId][]byte, harvesterSize)}
	for _, ec := range top[:harvesterSize] {
		harvester.Members[ec.Claim.NodeId] = ec.Claim.OwnerPublicKey
	}

	farmers := make([]*types.Quorum, farmerCount)
	rest := top[harvesterSize:]
	for i := 0; i < farmerCount; i++ {
		q := &types.Quorum{Kind: types.QuorumFarmer, Members: make(map[types.NodeId][]byte, farmerSize)}
		for _, ec := range rest[i*farmerSize : (i+1)*farmerSize] {
			q.Members[ec.Claim.NodeId] = ec.Claim.OwnerPublicKey
		}
		farmers[i] = q
	}

	return &ElectedQuorums{Harvester: harvester, Farmers: farmers}, nil
}

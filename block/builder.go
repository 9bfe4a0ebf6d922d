// Package block implements C6: proposal assembly, convergence-block
// construction with pluggable conflict resolution, and the harvester-side
// convergence precheck.
package block

import (
	"sort"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// AssembleProposal builds a Proposal block (Farmer role) out of the
// certified transactions and observed claims collected since the last
// convergence. Only certified transactions marked valid are included. The
// header is used exactly as given: this function does not sign the block.
func AssembleProposal(header types.BlockHeader, refBlock types.BlockHash, self types.NodeId, certified []types.QuorumCertifiedTxn, observedClaims map[types.NodeId]types.Claim) types.ProposalBlock {
	txns := map[types.NodeId]map[types.TxnDigest]struct{}{self: make(map[types.TxnDigest]struct{})}
	for _, qct := range certified {
		if !qct.IsValid {
			continue
		}
		txns[self][qct.Txn.Digest()] = struct{}{}
	}

	claims := make(map[types.NodeId]types.Claim, len(observedClaims))
	for id, c := range observedClaims {
		claims[id] = c
	}

	return types.ProposalBlock{
		Header:   header,
		RefBlock: refBlock,
		Txns:     txns,
		Claims:   claims,
	}
}

// resolveClaims applies the same deterministic tie-break FirstProposalWins
// uses for transactions to claim observations: every NodeId observed by
// more than one proposal is kept by whichever proposal sorts first under
// tieBreakKey.
func resolveClaims(proposals []types.ProposalBlock, round uint64, seed types.Seed) map[types.BlockHash]map[types.NodeId]types.Claim {
	ordered := make([]types.ProposalBlock, len(proposals))
	copy(ordered, proposals)
	sort.Slice(ordered, func(i, j int) bool {
		return tieBreakKey(ordered[i].Hash(), round, seed) < tieBreakKey(ordered[j].Hash(), round, seed)
	})

	out := make(map[types.BlockHash]map[types.NodeId]types.Claim, len(proposals))
	for _, p := range proposals {
		out[p.Hash()] = make(map[types.NodeId]types.Claim)
	}

	claimed := make(map[types.NodeId]bool)
	for _, p := range ordered {
		hash := p.Hash()
		for nodeID, claim := range p.Claims {
			if claimed[nodeID] {
				continue
			}
			claimed[nodeID] = true
			out[hash][nodeID] = claim
		}
	}
	return out
}

// BuildConvergence merges proposals sharing refHashes into a Convergence
// block (Miner role): every digest that appears in more than one proposal is
// assigned to exactly one of them by resolver, and every claim likewise by
// resolveClaims' fixed tie-break, whichever resolver is passed.
func BuildConvergence(header types.BlockHeader, proposals []types.ProposalBlock, resolver Resolver) types.ConvergenceBlock {
	if resolver == nil {
		resolver = FirstProposalWins{}
	}

	refHashes := make([]types.BlockHash, len(proposals))
	for i, p := range proposals {
		refHashes[i] = p.Hash()
	}

	txns := resolver.Resolve(proposals, header.Round, header.BlockSeed)
	claims := resolveClaims(proposals, header.Round, header.BlockSeed)

	return types.ConvergenceBlock{
		Header:    header,
		RefHashes: refHashes,
		Txns:      txns,
		Claims:    claims,
	}
}

// ProposalSource resolves a proposal block by hash, as the DAG does.
type ProposalSource interface {
	Proposal(hash types.BlockHash) (types.ProposalBlock, bool)
}

// PrecheckConvergence implements the Harvester-role convergence precheck: it
// verifies the declaring miner is within the current top-5 election window,
// re-fetches every referenced proposal, re-runs resolver, and compares the
// convergence's declared txns/claims maps against the resolver's output.
func PrecheckConvergence(conv types.ConvergenceBlock, topMiners []types.NodeId, dag ProposalSource, resolver Resolver) (txnsOK bool, claimsOK bool, err error) {
	if !isTopMiner(conv.Header.MinerClaim.NodeId, topMiners) {
		return false, false, ErrNotTopMiner
	}

	proposals := make([]types.ProposalBlock, 0, len(conv.RefHashes))
	for _, hash := range conv.RefHashes {
		p, ok := dag.Proposal(hash)
		if !ok {
			return false, false, ErrMissingProposals
		}
		proposals = append(proposals, p)
	}

	if resolver == nil {
		resolver = FirstProposalWins{}
	}
	wantTxns := resolver.Resolve(proposals, conv.Header.Round, conv.Header.BlockSeed)
	wantClaims := resolveClaims(proposals, conv.Header.Round, conv.Header.BlockSeed)

	return txnSetsEqual(conv.Txns, wantTxns), claimSetsEqual(conv.Claims, wantClaims), nil
}

func isTopMiner(id types.NodeId, topMiners []types.NodeId) bool {
	for _, m := range topMiners {
		if m == id {
			return true
		}
	}
	return false
}

func txnSetsEqual(a, b map[types.BlockHash]map[types.TxnDigest]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for hash, digests := range a {
		other, ok := b[hash]
		if !ok || len(other) != len(digests) {
			return false
		}
		for d := range digests {
			if _, ok := other[d]; !ok {
				return false
			}
		}
	}
	return true
}

func claimSetsEqual(a, b map[types.BlockHash]map[types.NodeId]types.Claim) bool {
	if len(a) != len(b) {
		return false
	}
	for hash, claims := range a {
		other, ok := b[hash]
		if !ok || len(other) != len(claims) {
			return false
		}
		for id := range claims {
			if _, ok := other[id]; !ok {
				return false
			}
		}
	}
	return true
}

package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// Resolver decides, for a set of concurrent proposals that share a digest,
// which single proposal keeps it. Exposed as a capability per spec.md §9
// ("dynamic polymorphism over resolver... expose it as a capability"), so
// alternate conflict-resolution experiments can be swapped in without
// touching the miner/harvester code that calls it.
type Resolver interface {
	Resolve(proposals []types.ProposalBlock, round uint64, seed types.Seed) map[types.BlockHash]map[types.TxnDigest]struct{}
}

// FirstProposalWins is the default Resolver: proposals are ordered by a
// deterministic tie-break key derived from (round, seed, proposal hash), and
// for every digest shared by more than one proposal, the earliest proposal
// in that order keeps it — every later proposal drops it.
type FirstProposalWins struct{}

// Resolve implements Resolver.
func (FirstProposalWins) Resolve(proposals []types.ProposalBlock, round uint64, seed types.Seed) map[types.BlockHash]map[types.TxnDigest]struct{} {
	ordered := make([]types.ProposalBlock, len(proposals))
	copy(ordered, proposals)
	sort.Slice(ordered, func(i, j int) bool {
		return tieBreakKey(ordered[i].Hash(), round, seed) < tieBreakKey(ordered[j].Hash(), round, seed)
	})

	out := make(map[types.BlockHash]map[types.TxnDigest]struct{}, len(proposals))
	for _, p := range proposals {
		out[p.Hash()] = make(map[types.TxnDigest]struct{})
	}

	claimed := make(map[types.TxnDigest]types.BlockHash)
	for _, p := range ordered {
		hash := p.Hash()
		for _, digests := range p.Txns {
			for digest := range digests {
				if _, already := claimed[digest]; already {
					continue
				}
				claimed[digest] = hash
				out[hash][digest] = struct{}{}
			}
		}
	}
	return out
}

// tieBreakKey returns a string sortable in the deterministic order the
// resolver promises: byte-equal for byte-equal (hash, round, seed) inputs,
// and otherwise effectively random, matching spec.md's "Resolver
// monotonicity" testable property.
func tieBreakKey(hash types.BlockHash, round uint64, seed types.Seed) string {
	h := sha256.New()
	var roundBytes, seedBytes [8]byte
	binary.BigEndian.PutUint64(roundBytes[:], round)
	binary.BigEndian.PutUint64(seedBytes[:], uint64(seed))
	h.Write(roundBytes[:])
	h.Write(seedBytes[:])
	h.Write(hash[:])
	var buf bytes.Buffer
	buf.Write(h.Sum(nil))
	return buf.String()
}

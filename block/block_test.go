package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/vrrb-consensus/types"
)

type fakeDAG struct {
	proposals map[types.BlockHash]types.ProposalBlock
}

func (f fakeDAG) Proposal(hash types.BlockHash) (types.ProposalBlock, bool) {
	p, ok := f.proposals[hash]
	return p, ok
}

func proposalWithDigest(t *testing.T, height uint64, nodeID types.NodeId, digests ...types.TxnDigest) types.ProposalBlock {
	t.Helper()
	set := make(map[types.TxnDigest]struct{}, len(digests))
	for _, d := range digests {
		set[d] = struct{}{}
	}
	return types.ProposalBlock{
		Header: types.BlockHeader{BlockHeight: height, Round: 1, BlockSeed: 42, MinerClaim: types.Claim{OwnerPublicKey: []byte(nodeID)}},
		Txns:   map[types.NodeId]map[types.TxnDigest]struct{}{nodeID: set},
		Claims: map[types.NodeId]types.Claim{nodeID: {NodeId: nodeID}},
	}
}

func TestFirstProposalWinsAssignsEachDigestOnce(t *testing.T) {
	shared := types.TxnDigest{1}
	unique1 := types.TxnDigest{2}
	unique2 := types.TxnDigest{3}

	p1 := proposalWithDigest(t, 2, "p1", shared, unique1)
	p2 := proposalWithDigest(t, 2, "p2", shared, unique2)

	result := FirstProposalWins{}.Resolve([]types.ProposalBlock{p1, p2}, 1, 42)

	total := 0
	seen := make(map[types.TxnDigest]bool)
	for _, digests := range result {
		for d := range digests {
			require.False(t, seen[d], "digest %v assigned to more than one proposal", d)
			seen[d] = true
			total++
		}
	}
	require.Equal(t, 3, total) // shared once + two uniques
}

func TestFirstProposalWinsIsDeterministic(t *testing.T) {
	shared := types.TxnDigest{1}
	p1 := proposalWithDigest(t, 2, "p1", shared)
	p2 := proposalWithDigest(t, 2, "p2", shared)

	r1 := FirstProposalWins{}.Resolve([]types.ProposalBlock{p1, p2}, 5, 99)
	r2 := FirstProposalWins{}.Resolve([]types.ProposalBlock{p1, p2}, 5, 99)

	for hash, digests := range r1 {
		require.Equal(t, len(digests), len(r2[hash]))
		for d := range digests {
			_, ok := r2[hash][d]
			require.True(t, ok)
		}
	}
}

func TestBuildAndPrecheckConvergenceAgree(t *testing.T) {
	shared := types.TxnDigest{1}
	p1 := proposalWithDigest(t, 2, "p1", shared)
	p2 := proposalWithDigest(t, 2, "p2", shared)
	proposals := []types.ProposalBlock{p1, p2}

	header := types.BlockHeader{BlockHeight: 3, Round: 1, BlockSeed: 42, MinerClaim: types.Claim{NodeId: "miner"}}
	conv := BuildConvergence(header, proposals, nil)

	dag := fakeDAG{proposals: map[types.BlockHash]types.ProposalBlock{
		p1.Hash(): p1,
		p2.Hash(): p2,
	}}

	txnsOK, claimsOK, err := PrecheckConvergence(conv, []types.NodeId{"miner"}, dag, nil)
	require.NoError(t, err)
	require.True(t, txnsOK)
	require.True(t, claimsOK)
}

func TestPrecheckConvergenceRejectsNonTopMiner(t *testing.T) {
	header := types.BlockHeader{MinerClaim: types.Claim{NodeId: "outsider"}}
	conv := types.ConvergenceBlock{Header: header}
	_, _, err := PrecheckConvergence(conv, []types.NodeId{"miner"}, fakeDAG{}, nil)
	require.ErrorIs(t, err, ErrNotTopMiner)
}

func TestPrecheckConvergenceMissingProposal(t *testing.T) {
	header := types.BlockHeader{MinerClaim: types.Claim{NodeId: "miner"}}
	conv := types.ConvergenceBlock{Header: header, RefHashes: []types.BlockHash{{9, 9}}}
	_, _, err := PrecheckConvergence(conv, []types.NodeId{"miner"}, fakeDAG{proposals: map[types.BlockHash]types.ProposalBlock{}}, nil)
	require.ErrorIs(t, err, ErrMissingProposals)
}

func TestPrecheckConvergenceDetectsTamperedTxns(t *testing.T) {
	shared := types.TxnDigest{1}
	extra := types.TxnDigest{5}
	p1 := proposalWithDigest(t, 2, "p1", shared)
	p2 := proposalWithDigest(t, 2, "p2", shared)
	proposals := []types.ProposalBlock{p1, p2}

	header := types.BlockHeader{BlockHeight: 3, Round: 1, BlockSeed: 42, MinerClaim: types.Claim{NodeId: "miner"}}
	conv := BuildConvergence(header, proposals, nil)
	// tamper: drop the shared digest from every proposal's resolved set.
	for hash := range conv.Txns {
		conv.Txns[hash] = map[types.TxnDigest]struct{}{extra: {}}
	}

	dag := fakeDAG{proposals: map[types.BlockHash]types.ProposalBlock{p1.Hash(): p1, p2.Hash(): p2}}
	txnsOK, _, err := PrecheckConvergence(conv, []types.NodeId{"miner"}, dag, nil)
	require.NoError(t, err)
	require.False(t, txnsOK)
}

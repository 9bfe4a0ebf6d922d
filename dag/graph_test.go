package dag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/vrrb-consensus/types"
)

func TestAppendGenesisOnlyOnce(t *testing.T) {
	g := New(16)
	genesis := types.GenesisBlock{Header: types.BlockHeader{BlockHeight: 0}}
	require.NoError(t, g.AppendGenesis(genesis))
	require.ErrorIs(t, g.AppendGenesis(genesis), ErrDuplicateGenesis)
}

func TestAppendProposalRequiresExistingParent(t *testing.T) {
	g := New(16)
	p := types.ProposalBlock{Header: types.BlockHeader{BlockHeight: 1}, RefBlock: types.BlockHash{9}}
	require.ErrorIs(t, g.AppendProposal(p), ErrNonExistentReference)
}

func TestAppendConvergenceSkipsMissingParentsButNeedsOne(t *testing.T) {
	g := New(16)
	genesis := types.GenesisBlock{Header: types.BlockHeader{BlockHeight: 0}}
	require.NoError(t, g.AppendGenesis(genesis))
	genesisHash := genesis.Header.Hash()

	p := types.ProposalBlock{Header: types.BlockHeader{BlockHeight: 1, MinerClaim: types.Claim{NodeId: "p"}}, RefBlock: genesisHash}
	require.NoError(t, g.AppendProposal(p))

	conv := types.ConvergenceBlock{
		Header:    types.BlockHeader{BlockHeight: 2, MinerClaim: types.Claim{NodeId: "m"}},
		RefHashes: []types.BlockHash{p.Hash(), {77}},
	}
	require.NoError(t, g.AppendConvergence(conv))

	_, ok := g.GetVertex(conv.Hash())
	require.True(t, ok)

	allMissing := types.ConvergenceBlock{
		Header:    types.BlockHeader{BlockHeight: 3},
		RefHashes: []types.BlockHash{{1}, {2}},
	}
	require.ErrorIs(t, g.AppendConvergence(allMissing), ErrNonExistentReference)
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := New(16)
	genesis := types.GenesisBlock{Header: types.BlockHeader{BlockHeight: 0}}
	require.NoError(t, g.AppendGenesis(genesis))
	genesisHash := genesis.Header.Hash()

	p := types.ProposalBlock{Header: types.BlockHeader{BlockHeight: 1, MinerClaim: types.Claim{NodeId: "p"}}, RefBlock: genesisHash}
	require.NoError(t, g.AppendProposal(p))

	conv := types.ConvergenceBlock{
		Header:    types.BlockHeader{BlockHeight: 2, MinerClaim: types.Claim{NodeId: "m"}},
		RefHashes: []types.BlockHash{p.Hash()},
	}
	require.NoError(t, g.AppendConvergence(conv))

	ancestors := g.Ancestors(conv.Hash())
	require.Len(t, ancestors, 2) // proposal + genesis

	descendants := g.Descendants(genesisHash)
	require.Len(t, descendants, 2) // proposal + convergence
}

func TestDotRendersWithoutPanicking(t *testing.T) {
	g := New(16)
	genesis := types.GenesisBlock{Header: types.BlockHeader{BlockHeight: 0}}
	require.NoError(t, g.AppendGenesis(genesis))

	out := g.Dot()
	require.Contains(t, out, "digraph")
}

package votepool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/vrrb-consensus/types"
)

func farmerMembership() (*types.QuorumMembership, types.QuorumId) {
	members := []types.NodeId{"f1", "f2", "f3"}
	quorumID := types.NewQuorumId(types.QuorumFarmer, members)
	m := types.NewQuorumMembership()
	m.Quorums[quorumID] = &types.Quorum{
		Kind: types.QuorumFarmer,
		Members: map[types.NodeId][]byte{
			"f1": []byte("f1"), "f2": []byte("f2"), "f3": []byte("f3"),
		},
	}
	return m, quorumID
}

func TestInsertRejectsNonHarvester(t *testing.T) {
	m, _ := farmerMembership()
	p := New()
	err := p.Insert(types.Vote{FarmerNodeId: "f1"}, false, m)
	require.ErrorIs(t, err, ErrNotAHarvester)
}

func TestInsertRejectsNonFarmerVoter(t *testing.T) {
	m, _ := farmerMembership()
	p := New()
	err := p.Insert(types.Vote{FarmerNodeId: "ghost"}, true, m)
	require.ErrorIs(t, err, ErrVoterNotInFarmerQuorum)
}

func TestInsertIsIdempotentOnFarmerAndDigest(t *testing.T) {
	m, quorumID := farmerMembership()
	p := New()
	digest := types.TxnDigest{1, 2, 3}

	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f1", TxnDigest: digest, IsValid: true, Signature: []byte("s1")}, true, m))
	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f1", TxnDigest: digest, IsValid: true, Signature: []byte("s1-resent")}, true, m))

	grouped := p.GroupByValidity(quorumID, digest)
	require.Len(t, grouped[true], 1)
	require.Equal(t, []byte("s1-resent"), grouped[true]["f1"])
}

func TestCanCertifyRequiresStrictMajorityAboveThreshold(t *testing.T) {
	m, quorumID := farmerMembership()
	p := New()
	digest := types.TxnDigest{9}

	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f1", TxnDigest: digest, IsValid: true, Signature: []byte("a")}, true, m))
	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f2", TxnDigest: digest, IsValid: true, Signature: []byte("b")}, true, m))

	_, _, ok := p.CanCertify(quorumID, digest, 2)
	require.False(t, ok)

	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f3", TxnDigest: digest, IsValid: true, Signature: []byte("c")}, true, m))
	isValid, sigs, ok := p.CanCertify(quorumID, digest, 2)
	require.True(t, ok)
	require.True(t, isValid)
	require.Len(t, sigs, 3)
}

func TestVoteAccountingSumsToTotal(t *testing.T) {
	m, quorumID := farmerMembership()
	p := New()
	digest := types.TxnDigest{4}

	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f1", TxnDigest: digest, IsValid: true}, true, m))
	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f2", TxnDigest: digest, IsValid: false}, true, m))

	grouped := p.GroupByValidity(quorumID, digest)
	require.Equal(t, 2, len(grouped[true])+len(grouped[false]))
}

func TestPruneDropsQuorum(t *testing.T) {
	m, quorumID := farmerMembership()
	p := New()
	digest := types.TxnDigest{7}
	require.NoError(t, p.Insert(types.Vote{FarmerNodeId: "f1", TxnDigest: digest, IsValid: true}, true, m))

	p.Prune(quorumID)
	grouped := p.GroupByValidity(quorumID, digest)
	require.Empty(t, grouped[true])
	require.Empty(t, grouped[false])
}

package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/vrrb-consensus/signer"
	"github.com/vrrb-io/vrrb-consensus/types"
)

func newTestSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.New(nil)
	require.NoError(t, err)
	return s
}

func TestGenerateSeedRejectsGenesisHeight(t *testing.T) {
	s := newTestSigner(t)
	_, err := GenerateSeed(0, []byte("prev"), s)
	require.ErrorIs(t, err, ErrInvalidSeed)
}

func TestGenerateSeedIsDeterministic(t *testing.T) {
	s := newTestSigner(t)
	seed1, err := GenerateSeed(10, []byte("prev-hash"), s)
	require.NoError(t, err)
	seed2, err := GenerateSeed(10, []byte("prev-hash"), s)
	require.NoError(t, err)
	require.Equal(t, seed1, seed2)
}

func TestGenerateSeedVariesWithHeight(t *testing.T) {
	s := newTestSigner(t)
	seed1, err := GenerateSeed(10, []byte("prev-hash"), s)
	require.NoError(t, err)
	seed2, err := GenerateSeed(11, []byte("prev-hash"), s)
	require.NoError(t, err)
	require.NotEqual(t, seed1, seed2)
}

func claimWithNodeID(id types.NodeId) types.Claim {
	return types.Claim{
		OwnerPublicKey: []byte("pub-" + string(id)),
		Address:        "addr-" + string(id),
		Eligibility:    types.EligibilityMiner,
		NodeId:         id,
	}
}

func TestElectMinerIsDeterministic(t *testing.T) {
	claims := []types.Claim{
		claimWithNodeID("a"), claimWithNodeID("b"), claimWithNodeID("c"),
	}
	ranked1, err := ElectMiner(claims, types.Seed(42))
	require.NoError(t, err)
	ranked2, err := ElectMiner(claims, types.Seed(42))
	require.NoError(t, err)

	require.Equal(t, len(ranked1), len(ranked2))
	for i := range ranked1 {
		require.Equal(t, ranked1[i].Claim.NodeId, ranked2[i].Claim.NodeId)
		require.Equal(t, 0, ranked1[i].Pointer.Cmp(ranked2[i].Pointer))
	}
}

func TestElectMinerNoEligibleClaims(t *testing.T) {
	claims := []types.Claim{{NodeId: "a", Eligibility: types.EligibilityValidator}}
	_, err := ElectMiner(claims, types.Seed(1))
	require.ErrorIs(t, err, ErrNotEnoughEligibleClaims)
}

func TestElectMinerTieBreaksByNodeID(t *testing.T) {
	// GetElectionResult hashes only OwnerPublicKey, Address and the seed, so
	// two claims sharing both yield identical pointers and the NodeId
	// tie-break alone decides their order.
	claims := []types.Claim{
		{NodeId: "z", Eligibility: types.EligibilityMiner, OwnerPublicKey: []byte("shared"), Address: "shared"},
		{NodeId: "a", Eligibility: types.EligibilityMiner, OwnerPublicKey: []byte("shared"), Address: "shared"},
	}
	ranked, err := ElectMiner(claims, types.Seed(7))
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	require.Equal(t, 0, ranked[0].Pointer.Cmp(ranked[1].Pointer))
	require.Equal(t, types.NodeId("a"), ranked[0].Claim.NodeId)
}

func TestElectQuorumsPartitionsAndRejectsShortfall(t *testing.T) {
	claims := make([]types.Claim, 0, 9)
	for i := 0; i < 9; i++ {
		id := types.NodeId(rune('a' + i))
		claims = append(claims, types.Claim{
			OwnerPublicKey: []byte(id),
			Address:        string(id),
			Eligibility:    types.EligibilityValidator,
			NodeId:         id,
		})
	}

	elected, err := ElectQuorums(claims, types.Seed(3), 3, 2, 3)
	require.NoError(t, err)
	require.Len(t, elected.Harvester.Members, 3)
	require.Len(t, elected.Farmers, 2)
	for _, f := range elected.Farmers {
		require.Len(t, f.Members, 3)
	}

	seen := make(map[types.NodeId]bool)
	for id := range elected.Harvester.Members {
		require.False(t, seen[id])
		seen[id] = true
	}
	for _, f := range elected.Farmers {
		for id := range f.Members {
			require.False(t, seen[id], "node %s assigned to more than one quorum", id)
			seen[id] = true
		}
	}

	_, err = ElectQuorums(claims[:5], types.Seed(3), 3, 2, 3)
	require.ErrorIs(t, err, ErrNotEnoughEligibleClaims)
}

func TestAssignBootstrapQuorumsRejectsDoubleAssignment(t *testing.T) {
	members := map[types.NodeId][]byte{
		"a": []byte("a"), "b": []byte("b"), "c": []byte("c"),
		"d": []byte("d"), "e": []byte("e"),
	}
	assignments, err := AssignBootstrapQuorums(members, 2, 3)
	require.NoError(t, err)
	require.Len(t, assignments, 5)

	membership := types.NewQuorumMembership()
	require.NoError(t, Install(membership, assignments))
	require.Error(t, Install(membership, assignments))
}

func TestElectionCacheReturnsSameResultAsUncached(t *testing.T) {
	claims := []types.Claim{claimWithNodeID("a"), claimWithNodeID("b"), claimWithNodeID("c")}
	cache := NewElectionCache(16)

	ranked1, err := cache.GetOrElectMiner(claims, types.Seed(9))
	require.NoError(t, err)
	ranked2, err := cache.GetOrElectMiner(claims, types.Seed(9))
	require.NoError(t, err)
	require.Equal(t, len(ranked1), len(ranked2))
	require.Equal(t, ranked1[0].Claim.NodeId, ranked2[0].Claim.NodeId)
}

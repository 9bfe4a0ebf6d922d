package quorum

import (
	"sort"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// AssignBootstrapQuorums deterministically maps every online bootstrap
// member to a quorum membership, once all of them are online. members must
// be the full configured bootstrap roster; membership shapes the same way
// ElectQuorums does (one Harvester quorum, then Farmer quorums of farmerSize
// each), but assignment here is positional (sorted by NodeId) rather than
// pointer-ranked, since no block exists yet to derive a seed from.
func AssignBootstrapQuorums(members map[types.NodeId][]byte, harvesterSize, farmerSize int) ([]types.AssignedQuorumMembership, error) {
	ids := make([]types.NodeId, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]types.AssignedQuorumMembership, 0, len(ids))

	harvesterMembers := make([]types.NodeId, 0, harvesterSize)
	cursor := 0
	for ; cursor < len(ids) && cursor < harvesterSize; cursor++ {
		harvesterMembers = append(harvesterMembers, ids[cursor])
	}
	harvesterID := types.NewQuorumId(types.QuorumHarvester, harvesterMembers)
	for _, id := range harvesterMembers {
		out = append(out, types.AssignedQuorumMembership{NodeId: id, QuorumId: harvesterID, Kind: types.QuorumHarvester})
	}

	for cursor < len(ids) {
		end := cursor + farmerSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[cursor:end]
		farmerID := types.NewQuorumId(types.QuorumFarmer, batch)
		for _, id := range batch {
			out = append(out, types.AssignedQuorumMembership{NodeId: id, QuorumId: farmerID, Kind: types.QuorumFarmer})
		}
		cursor = end
	}

	return out, nil
}

// Install folds a batch of AssignedQuorumMembership records into membership,
// rejecting any record that would put a node in a second quorum.
func Install(membership *types.QuorumMembership, assignments []types.AssignedQuorumMembership) error {
	for _, a := range assignments {
		if _, _, ok := membership.QuorumOf(a.NodeId); ok {
			return ErrQuorumAlreadyAssigned
		}
	}
	for _, a := range assignments {
		q, ok := membership.Quorums[a.QuorumId]
		if !ok {
			q = &types.Quorum{Kind: a.Kind, Members: make(map[types.NodeId][]byte)}
			membership.Quorums[a.QuorumId] = q
		}
		// Members' public keys are filled in by the caller once known; here we
		// only reserve the slot so QuorumOf reports the assignment immediately.
		if _, exists := q.Members[a.NodeId]; !exists {
			q.Members[a.NodeId] = nil
		}
	}
	return nil
}

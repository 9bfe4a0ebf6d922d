package types

import (
	"crypto/sha256"
	"sort"
)

// QuorumKind distinguishes the two quorum roles.
type QuorumKind int

const (
	QuorumHarvester QuorumKind = iota
	QuorumFarmer
)

func (k QuorumKind) String() string {
	if k == QuorumHarvester {
		return "harvester"
	}
	return "farmer"
}

// QuorumId is the hash of (kind, sorted member list), so two quorums with
// identical membership and kind always collide to the same id.
type QuorumId [32]byte

// NewQuorumId derives a QuorumId deterministically from kind and members.
func NewQuorumId(kind QuorumKind, members []NodeId) QuorumId {
	sorted := make([]string, len(members))
	for i, m := range members {
		sorted[i] = string(m)
	}
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte{byte(kind)})
	for _, m := range sorted {
		h.Write([]byte(m))
		h.Write([]byte{0})
	}
	var id QuorumId
	copy(id[:], h.Sum(nil))
	return id
}

// Quorum is one elected committee: its kind and its member roster.
type Quorum struct {
	Kind    QuorumKind
	Members map[NodeId][]byte // NodeId -> public key
}

// QuorumMembership is the full roster in force for an epoch: every quorum a
// node could belong to, keyed by QuorumId. Invariant: a NodeId appears in at
// most one quorum's Members map across the whole QuorumMembership.
type QuorumMembership struct {
	Quorums map[QuorumId]*Quorum
}

// NewQuorumMembership returns an empty membership table.
func NewQuorumMembership() *QuorumMembership {
	return &QuorumMembership{Quorums: make(map[QuorumId]*Quorum)}
}

// QuorumOf returns the id and kind of the quorum node belongs to, if any.
func (m *QuorumMembership) QuorumOf(node NodeId) (QuorumId, *Quorum, bool) {
	for id, q := range m.Quorums {
		if _, ok := q.Members[node]; ok {
			return id, q, true
		}
	}
	return QuorumId{}, nil, false
}

// AssignedQuorumMembership is emitted for each peer mapped to a quorum during
// bootstrap assignment.
type AssignedQuorumMembership struct {
	NodeId   NodeId
	QuorumId QuorumId
	Kind     QuorumKind
}

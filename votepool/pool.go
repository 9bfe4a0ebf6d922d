// Package votepool implements C5: the per-quorum, per-transaction vote
// accounting a Harvester uses to decide whether enough Farmers agree on a
// transaction's validity to certify it.
//
// Per spec.md §5, the pool is owned outright by the Consensus Module and
// never escapes it, so — like dkgengine — it needs no internal locking: all
// mutation happens through the Consensus Module's single event-handling
// goroutine.
package votepool

import (
	"github.com/vrrb-io/vrrb-consensus/types"
)

// Pool holds every vote received this epoch, keyed by the Farmer quorum
// that cast it and then by the transaction digest being voted on.
type Pool struct {
	votes map[types.QuorumId]map[types.TxnDigest]map[types.NodeId]types.Vote
}

// New returns an empty vote pool.
func New() *Pool {
	return &Pool{votes: make(map[types.QuorumId]map[types.TxnDigest]map[types.NodeId]types.Vote)}
}

// Insert admits vote into the pool. localIsHarvester must be true (only a
// Harvester runs vote accounting); membership resolves which quorum the
// voter belongs to, and the voter must be a Farmer. Insertion is idempotent
// on (farmer_id, digest): inserting the same farmer's vote for the same
// digest again simply replaces the earlier one (e.g. a resent message),
// rather than double-counting.
func (p *Pool) Insert(vote types.Vote, localIsHarvester bool, membership *types.QuorumMembership) error {
	if !localIsHarvester {
		return ErrNotAHarvester
	}

	quorumID, quorum, ok := membership.QuorumOf(vote.FarmerNodeId)
	if !ok || quorum.Kind != types.QuorumFarmer {
		return ErrVoterNotInFarmerQuorum
	}

	byDigest, ok := p.votes[quorumID]
	if !ok {
		byDigest = make(map[types.TxnDigest]map[types.NodeId]types.Vote)
		p.votes[quorumID] = byDigest
	}
	byVoter, ok := byDigest[vote.TxnDigest]
	if !ok {
		byVoter = make(map[types.NodeId]types.Vote)
		byDigest[vote.TxnDigest] = byVoter
	}
	byVoter[vote.FarmerNodeId] = vote
	return nil
}

// GroupByValidity partitions the votes cast on (quorum, digest) by verdict,
// returning each side's signatures keyed by voter NodeId.
func (p *Pool) GroupByValidity(quorumID types.QuorumId, digest types.TxnDigest) map[bool]map[types.NodeId][]byte {
	out := map[bool]map[types.NodeId][]byte{
		true:  make(map[types.NodeId][]byte),
		false: make(map[types.NodeId][]byte),
	}
	for voter, vote := range p.votes[quorumID][digest] {
		out[vote.IsValid][voter] = vote.Signature
	}
	return out
}

// CanCertify reports whether one verdict on (quorum, digest) has strictly
// more than threshold supporting signatures, returning that verdict and its
// signature set. ok is false if neither side clears the threshold.
func (p *Pool) CanCertify(quorumID types.QuorumId, digest types.TxnDigest, threshold int) (isValid bool, signatures map[types.NodeId][]byte, ok bool) {
	grouped := p.GroupByValidity(quorumID, digest)
	if len(grouped[true]) > threshold {
		return true, grouped[true], true
	}
	if len(grouped[false]) > threshold {
		return false, grouped[false], true
	}
	return false, nil, false
}

// Prune discards every vote recorded for quorumID, used on epoch roll once
// a quorum's membership changes.
func (p *Pool) Prune(quorumID types.QuorumId) {
	delete(p.votes, quorumID)
}

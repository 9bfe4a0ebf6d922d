package consensus

import (
	"github.com/vrrb-io/vrrb-consensus/types"
)

// Event is the inbound event envelope the Consensus Module consumes from
// the network layer (spec.md §6). The set of concrete types is closed to
// this package via the unexported isEvent marker, standing in for the
// tagged union/enum the original models this as — Go has no native sum
// type, so a type switch in Dispatch plays that role instead.
type Event interface {
	isEvent()
}

// PeerJoined announces a newly connected peer, consumed while bootstrapping.
type PeerJoined struct {
	NodeId    types.NodeId
	NodeType  string
	Addresses []string
	PublicKey []byte
}

func (PeerJoined) isEvent() {}

// QuorumMembershipAssignmentsCreated delivers one node's quorum assignment,
// computed and broadcast by the bootstrap node.
type QuorumMembershipAssignmentsCreated struct {
	Assignment types.AssignedQuorumMembership
}

func (QuorumMembershipAssignmentsCreated) isEvent() {}

// MinerElectionStarted triggers a miner election over claims observed as of
// Header.
type MinerElectionStarted struct {
	Header types.BlockHeader
	Claims []types.Claim
}

func (MinerElectionStarted) isEvent() {}

// QuorumElectionStarted triggers a quorum election over claims observed as
// of Header.
type QuorumElectionStarted struct {
	Header types.BlockHeader
	Claims []types.Claim
}

func (QuorumElectionStarted) isEvent() {}

// TxnAddedToMempool names a transaction already in the mempool that now
// needs validation and a vote.
type TxnAddedToMempool struct {
	Digest types.TxnDigest
}

func (TxnAddedToMempool) isEvent() {}

// NewTxnCreated carries a transaction directly, bypassing a mempool lookup.
type NewTxnCreated struct {
	Txn types.Transaction
}

func (NewTxnCreated) isEvent() {}

// BlockReceived delivers any DAG vertex (genesis, proposal or convergence)
// for appending.
type BlockReceived struct {
	Block types.Block
}

func (BlockReceived) isEvent() {}

// ConvergenceBlockPrecheckRequested asks the local Harvester to validate and,
// if valid, sign a convergence block.
type ConvergenceBlockPrecheckRequested struct {
	Block types.ConvergenceBlock
}

func (ConvergenceBlockPrecheckRequested) isEvent() {}

// SignConvergenceBlock asks the local Harvester to sign block directly,
// skipping the precheck (used when the precheck already ran elsewhere).
type SignConvergenceBlock struct {
	Block types.ConvergenceBlock
}

func (SignConvergenceBlock) isEvent() {}

// HarvesterSignatureReceived delivers one Harvester's partial signature over
// a convergence block hash.
type HarvesterSignatureReceived struct {
	BlockHash types.BlockHash
	NodeId    types.NodeId
	Signature []byte
}

func (HarvesterSignatureReceived) isEvent() {}

// CertificateReceived delivers a certificate produced elsewhere (spec.md §6
// names this event "BlockCertificateCreated" in the inbound envelope; it is
// named distinctly here since Go's single type namespace can't reuse the
// identifier already taken by the outbound CertificateCreated event below).
type CertificateReceived struct {
	Certificate types.Certificate
}

func (CertificateReceived) isEvent() {}

// BlockConfirmedReceived delivers a certificate's wire bytes from elsewhere
// (e.g. a late-joining peer catching up); the module only logs it, since
// applying it to the state store is out of scope.
type BlockConfirmedReceived struct {
	CertificateBytes []byte
}

func (BlockConfirmedReceived) isEvent() {}

// Stop asks the event loop to drain and exit.
type Stop struct{}

func (Stop) isEvent() {}

// OutboundEvent is the set of events the Consensus Module emits, consumed by
// whatever transport implements EventPublisher.
type OutboundEvent interface {
	isOutboundEvent()
}

// EventPublisher is the narrow capability the Consensus Module needs to
// emit outbound events; the gossip/DHT overlay that implements it is out of
// scope (spec.md §1's non-goals).
type EventPublisher interface {
	Publish(OutboundEvent)
}

// VoteBroadcast announces a farmer's vote on a transaction's validity.
type VoteBroadcast struct {
	Vote types.Vote
}

func (VoteBroadcast) isOutboundEvent() {}

// ConvergencePartialSignComplete announces one harvester's signature over a
// convergence block.
type ConvergencePartialSignComplete struct {
	BlockHash types.BlockHash
	NodeId    types.NodeId
	Signature []byte
}

func (ConvergencePartialSignComplete) isOutboundEvent() {}

// MinerElected announces the winning (pointer, claim) pair of a miner
// election.
type MinerElected struct {
	Pointer []byte
	Claim   types.Claim
}

func (MinerElected) isOutboundEvent() {}

// QuorumElected announces one elected quorum (Harvester or Farmer).
type QuorumElected struct {
	Quorum types.Quorum
}

func (QuorumElected) isOutboundEvent() {}

// CertificateCreated announces a freshly produced block certificate.
type CertificateCreated struct {
	Certificate types.Certificate
}

func (CertificateCreated) isOutboundEvent() {}

// BlockConfirmed announces a certificate's canonical wire encoding once
// enough harvester signatures have certified its block.
type BlockConfirmed struct {
	CertificateBytes []byte
}

func (BlockConfirmed) isOutboundEvent() {}

// InvalidBlock announces that an incoming certificate failed verification —
// insufficient signatures, or one that doesn't verify against the quorum
// roster — and its block is rejected rather than applied.
type InvalidBlock struct {
	BlockHash types.BlockHash
	Reason    string
}

func (InvalidBlock) isOutboundEvent() {}

// Package dkgengine implements C2: a synchronous distributed key generation
// engine, one instance per node that is a master/validator, producing a
// threshold (t, n) signing share over a pairing-friendly curve.
//
// It is a Pedersen-style DKG (Torben Pryds Pedersen, "A threshold
// cryptosystem without a trusted party"), the same family drand builds on
// top of via go.dedis.ch/kyber/v3/share/dkg/pedersen. Unlike drand's own
// gossip-driven, echo-broadcast DKG process, this engine has no network
// awareness of its own: Part/Ack messages are handed to it and read back out
// by its caller, matching spec.md's "single owner, no internal locking"
// discipline. consensus.Module holds an Engine but does not drive it.
package dkgengine

import (
	"sort"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/share"
	pedersen "go.dedis.ch/kyber/v3/share/dkg/pedersen"

	"github.com/vrrb-io/vrrb-consensus/common/log"
	"github.com/vrrb-io/vrrb-consensus/metrics"
	"github.com/vrrb-io/vrrb-consensus/types"
)

// Config configures the threshold scheme an Engine drives.
type Config struct {
	Threshold int
	UpperBound int
	IsMaster   bool
}

type ackKey struct {
	issuer    types.NodeId
	responder types.NodeId
}

// Engine drives one node's synchronous DKG state machine.
type Engine struct {
	self    types.NodeId
	cfg     Config
	suite   pairing.Suite
	log     log.Logger
	metrics *metrics.Recorder

	longterm kyber.Scalar
	longpub  kyber.Point

	peerPublicKeys map[types.NodeId]kyber.Point

	generator *pedersen.DistKeyGenerator
	selfIndex int

	partStore map[types.NodeId]*Part
	ackStore  map[ackKey]*Ack

	publicKeySet   *PublicKeySet
	secretKeyShare *SecretKeyShare
}

// New constructs an Engine for self. The engine starts in the Collect phase:
// callers must feed peer public keys with AddPeerPublicKey until Ready().
// rec may be nil, in which case phase transitions are simply not recorded.
func New(self types.NodeId, cfg Config, l log.Logger, rec *metrics.Recorder) *Engine {
	if l == nil {
		l = log.DefaultLogger()
	}
	suite := pairing.NewSuiteBn256()
	longterm := suite.Scalar().Pick(suite.RandomStream())
	e := &Engine{
		self:           self,
		cfg:            cfg,
		suite:          suite,
		log:            l.Named("dkgengine"),
		metrics:        rec,
		longterm:       longterm,
		longpub:        suite.Point().Mul(longterm, nil),
		peerPublicKeys: make(map[types.NodeId]kyber.Point),
		partStore:      make(map[types.NodeId]*Part),
		ackStore:       make(map[ackKey]*Ack),
	}
	e.metrics.DKGPhase(metrics.DKGCollect)
	return e
}

// LongtermPublicKey returns the DKG keypair's public point, which this node
// must publish so peers can add it via AddPeerPublicKey.
func (e *Engine) LongtermPublicKey() kyber.Point {
	return e.longpub
}

// AddPeerPublicKey implements the Collect phase.
func (e *Engine) AddPeerPublicKey(id types.NodeId, pub kyber.Point) {
	e.peerPublicKeys[id] = pub
}

// Ready reports whether the engine holds exactly n peer public keys
// (including self) and may start the PartGenerated phase.
func (e *Engine) Ready() bool {
	return len(e.peerPublicKeys) == e.cfg.UpperBound
}

func (e *Engine) sortedParticipants() ([]types.NodeId, []kyber.Point) {
	ids := make([]types.NodeId, 0, len(e.peerPublicKeys))
	for id := range e.peerPublicKeys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	points := make([]kyber.Point, len(ids))
	for i, id := range ids {
		points[i] = e.peerPublicKeys[id]
	}
	return ids, points
}

// GenerateSyncKeygenInstance implements the PartGenerated phase: it creates
// the local generator and this node's Part commitment.
func (e *Engine) GenerateSyncKeygenInstance() (*Part, error) {
	if !e.cfg.IsMaster {
		return nil, ErrInvalidNode
	}
	if !e.Ready() {
		return nil, ErrNotEnoughPeerPublicKeys
	}

	ids, points := e.sortedParticipants()
	for i, id := range ids {
		if id == e.self {
			e.selfIndex = i
		}
	}

	generator, err := pedersen.NewDistKeyGenerator(e.suite, e.longterm, points, e.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	e.generator = generator

	deals, err := generator.Deals()
	if err != nil {
		return nil, err
	}

	part := &Part{Issuer: e.self, Index: uint32(e.selfIndex), Deals: deals}
	e.partStore[e.self] = part
	e.metrics.DKGPhase(metrics.DKGPartGenerated)
	return part, nil
}

// ReceivePart records a Part broadcast by another node, making it available
// to AckPartialCommitment.
func (e *Engine) ReceivePart(part *Part) {
	e.partStore[part.Issuer] = part
}

// AckPartialCommitment implements the AckIssued phase: it verifies the deal
// sender addressed to this node inside sender's Part and produces this
// node's Ack.
func (e *Engine) AckPartialCommitment(sender types.NodeId) (*Ack, error) {
	if e.generator == nil {
		return nil, ErrGeneratorNotCreated
	}

	key := ackKey{issuer: sender, responder: e.self}
	if _, already := e.ackStore[key]; already {
		return nil, ErrPartMsgAlreadyAcknowledge
	}

	part, ok := e.partStore[sender]
	if !ok {
		return nil, ErrPartMsgMissingForNode
	}

	deal, ok := part.Deals[e.selfIndex]
	if !ok {
		return nil, ErrInvalidPartMessage
	}

	resp, err := e.generator.ProcessDeal(deal)
	if err != nil {
		return nil, ErrInvalidPartMessage
	}

	ack := &Ack{Issuer: sender, Responder: e.self, Response: resp}
	e.ackStore[key] = ack
	e.metrics.DKGPhase(metrics.DKGAckIssued)
	return ack, nil
}

// ReceiveAck records an Ack produced by another node (in response to any
// issuer's Part, including this node's own), making it available to
// HandleAckMessages.
func (e *Engine) ReceiveAck(ack *Ack) error {
	key := ackKey{issuer: ack.Issuer, responder: ack.Responder}
	if _, already := e.ackStore[key]; already {
		return ErrPartMsgAlreadyAcknowledge
	}
	e.ackStore[key] = ack
	return nil
}

// HandleAckMessages implements the AckProcessed phase: it feeds every stored
// Ack into the generator so complaints/justifications are accounted for.
func (e *Engine) HandleAckMessages() error {
	if e.generator == nil {
		return ErrGeneratorNotCreated
	}
	for _, ack := range e.ackStore {
		justification, err := e.generator.ProcessResponse(ack.Response)
		if err != nil {
			return ErrInvalidAckMessage
		}
		if justification != nil {
			e.log.Warnw("ack raised a justification", "issuer", ack.Issuer, "responder", ack.Responder)
			return ErrInvalidAckMessage
		}
	}
	e.metrics.DKGPhase(metrics.DKGAckProcessed)
	return nil
}

// Certified reports whether enough parts were completed to finalize.
func (e *Engine) Certified() bool {
	return e.generator != nil && e.generator.Certified()
}

// QUAL returns the indices of the qualified share holders.
func (e *Engine) QUAL() []int {
	if e.generator == nil {
		return nil
	}
	return e.generator.QUAL()
}

// GenerateKeySets implements the Finalized phase: it extracts the group
// public key set and this node's local secret share.
func (e *Engine) GenerateKeySets() (*PublicKeySet, *SecretKeyShare, error) {
	if e.generator == nil {
		return nil, nil, ErrGeneratorNotCreated
	}
	if !e.generator.Certified() {
		return nil, nil, ErrNotEnoughPartsCompleted
	}

	distKey, err := e.generator.DistKeyShare()
	if err != nil {
		return nil, nil, ErrNotEnoughPartsCompleted
	}

	poly := share.NewPubPoly(e.suite, e.suite.Point().Base(), distKey.Commitments())
	e.publicKeySet = &PublicKeySet{Poly: poly}
	e.secretKeyShare = &SecretKeyShare{Share: distKey.PriShare()}
	e.metrics.DKGPhase(metrics.DKGFinalized)
	return e.publicKeySet, e.secretKeyShare, nil
}

// ClearState resets all stores and optional fields, as spec.md mandates on
// epoch roll; the engine can then be reused for a fresh epoch once the
// caller repopulates peer public keys.
func (e *Engine) ClearState() {
	e.peerPublicKeys = make(map[types.NodeId]kyber.Point)
	e.partStore = make(map[types.NodeId]*Part)
	e.ackStore = make(map[ackKey]*Ack)
	e.generator = nil
	e.publicKeySet = nil
	e.secretKeyShare = nil
	e.selfIndex = 0
}

// Package consensus implements C8: the orchestrator that owns C1–C7, drives
// the per-round state machine spec.md §4.8 diagrams, and produces block
// certificates. It is the sole cross-component writer — every other
// component is reached through the handle the Module holds for it
// (signer.Signer, dkgengine.Engine, dag.Graph, block.Resolver,
// validator.Core, votepool.Pool) — grounded on the teacher's own top-level
// daemon.go, which holds concrete handles to every subsystem and dispatches
// incoming protobuf requests to them one at a time.
package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vrrb-io/vrrb-consensus/block"
	"github.com/vrrb-io/vrrb-consensus/common/log"
	"github.com/vrrb-io/vrrb-consensus/config"
	"github.com/vrrb-io/vrrb-consensus/dag"
	"github.com/vrrb-io/vrrb-consensus/dkgengine"
	"github.com/vrrb-io/vrrb-consensus/metrics"
	"github.com/vrrb-io/vrrb-consensus/quorum"
	"github.com/vrrb-io/vrrb-consensus/signer"
	"github.com/vrrb-io/vrrb-consensus/types"
	"github.com/vrrb-io/vrrb-consensus/validator"
	"github.com/vrrb-io/vrrb-consensus/votepool"
)

// RoundState names a position in spec.md §4.8's per-round state machine.
type RoundState int

const (
	StateIdle RoundState = iota
	StateWaitingForQuorum
	StateAssigningQuorums
	StateDKG
	StateReadyForRound
	StateElectingMiner
	StateSignBlock
	StateCertifyBlock
)

func (s RoundState) String() string {
	switch s {
	case StateWaitingForQuorum:
		return "waiting_for_quorum"
	case StateAssigningQuorums:
		return "assigning_quorums"
	case StateDKG:
		return "dkg"
	case StateReadyForRound:
		return "ready_for_round"
	case StateElectingMiner:
		return "electing_miner"
	case StateSignBlock:
		return "sign_block"
	case StateCertifyBlock:
		return "certify_block"
	default:
		return "idle"
	}
}

// Config wires every collaborator the Module needs. Signer, DKG and DAG are
// held by composition (concrete types, not interfaces) since the Module is
// their sole writer, per spec.md §9's "Cyclic back-references" resolution;
// Resolver, Publisher, StateReader/MempoolReader/DuplicateChecker are
// capability interfaces since they have other legitimate implementations.
type Config struct {
	Self types.NodeId
	Node config.Config

	Signer    *signer.Signer
	DKG       *dkgengine.Engine
	DAG       *dag.Graph
	Validator *validator.Core
	Resolver  block.Resolver
	Publisher EventPublisher

	State   validator.StateReader
	Mempool validator.MempoolReader
	Dup     validator.DuplicateChecker

	Log log.Logger
	// Now lets tests fast-forward the convergence-signing timeout
	// deterministically instead of sleeping, per SPEC_FULL.md §6's C8
	// supplement.
	Now func() time.Time
}

// Module orchestrates C1–C7 for one node. Its mutable state — the current
// RoundState, bootstrap bookkeeping, election results and in-flight
// certification attempts — is guarded by a single mutex, matching spec.md
// §5's "single-threaded internally... handles one event at a time" model:
// callers may invoke handlers concurrently, but the Module serializes them.
type Module struct {
	mu sync.Mutex

	self types.NodeId
	cfg  config.Config

	signer        *signer.Signer
	dkg           *dkgengine.Engine
	dagGraph      *dag.Graph
	validatorCore *validator.Core
	resolver      block.Resolver
	publisher     EventPublisher

	state       validator.StateReader
	mempool     validator.MempoolReader
	dup         validator.DuplicateChecker

	votes         *votepool.Pool
	membership    *types.QuorumMembership
	electionCache *quorum.ElectionCache

	log     log.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	round          RoundState
	roundStartedAt time.Time

	bootstrapRoster  map[types.NodeId]struct{}
	bootstrapOnline  map[types.NodeId]struct{}
	bootstrapPubkeys map[types.NodeId][]byte

	topMiners []types.NodeId

	pendingSignatures   map[types.BlockHash]map[types.NodeId][]byte
	pendingConvergence  map[types.BlockHash]types.ConvergenceBlock
	convergenceDeadline map[types.BlockHash]time.Time
}

// New constructs a Module. Signer, DKG and DAG must be non-nil; Resolver,
// Publisher, Log and Now fall back to sane defaults.
func New(cfg Config) (*Module, error) {
	if cfg.Signer == nil {
		return nil, fmt.Errorf("consensus: Config.Signer is required")
	}
	if cfg.DKG == nil {
		return nil, fmt.Errorf("consensus: Config.DKG is required")
	}
	if cfg.DAG == nil {
		return nil, fmt.Errorf("consensus: Config.DAG is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("consensus: Config.Validator is required")
	}

	l := cfg.Log
	if l == nil {
		l = log.DefaultLogger()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = block.FirstProposalWins{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = noopPublisher{}
	}

	roster := make(map[types.NodeId]struct{}, len(cfg.Node.BootstrapQuorumMembers))
	for _, id := range cfg.Node.BootstrapQuorumMembers {
		roster[types.NodeId(id)] = struct{}{}
	}

	m := &Module{
		self:          cfg.Self,
		cfg:           cfg.Node,
		signer:        cfg.Signer,
		dkg:           cfg.DKG,
		dagGraph:      cfg.DAG,
		validatorCore: cfg.Validator,
		resolver:      resolver,
		publisher:     publisher,
		state:         cfg.State,
		mempool:       cfg.Mempool,
		dup:           cfg.Dup,
		votes:         votepool.New(),
		membership:    types.NewQuorumMembership(),
		electionCache: quorum.NewElectionCache(64),
		log:           log.WithNode(l.Named("consensus"), string(cfg.Self)),
		metrics:       metrics.NewRecorder(),
		now:           now,
		round:         StateIdle,

		bootstrapRoster:  roster,
		bootstrapOnline:  make(map[types.NodeId]struct{}),
		bootstrapPubkeys: make(map[types.NodeId][]byte),

		pendingSignatures:   make(map[types.BlockHash]map[types.NodeId][]byte),
		pendingConvergence:  make(map[types.BlockHash]types.ConvergenceBlock),
		convergenceDeadline: make(map[types.BlockHash]time.Time),
	}
	return m, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(OutboundEvent) {}

// State returns the current RoundState, mostly for observability/tests.
func (m *Module) State() RoundState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.round
}

func (m *Module) setState(s RoundState) {
	m.round = s
}

func (m *Module) isHarvester() bool {
	return m.cfg.NodeType == config.NodeHarvester || m.cfg.NodeType == config.NodeFull
}

func (m *Module) isFarmer() bool {
	return m.cfg.NodeType == config.NodeFarmer || m.cfg.NodeType == config.NodeFull
}

// clampSize floors a configured quorum size at 1, per config.Config's own
// documented contract that zero sizes are clamped to 1 where they are used.
func clampSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ---- C8 key operations, named per spec.md §4.8 ----

// HandleNodeAddedToPeerList implements handle_node_added_to_peer_list: if
// bootstrapping and peer is in the configured roster, marks it online; once
// every configured member is online, it computes and returns the quorum
// assignments for the whole roster.
func (m *Module) HandleNodeAddedToPeerList(peer PeerJoined) ([]types.AssignedQuorumMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.NodeType != config.NodeBootstrap {
		return nil, fmt.Errorf("handle_node_added_to_peer_list: %w", ErrNotBootstrapping)
	}
	if _, ok := m.bootstrapRoster[peer.NodeId]; !ok {
		return nil, fmt.Errorf("handle_node_added_to_peer_list: %w: %s", ErrPeerNotInBootstrapRoster, peer.NodeId)
	}

	m.setState(StateWaitingForQuorum)
	m.bootstrapOnline[peer.NodeId] = struct{}{}
	m.bootstrapPubkeys[peer.NodeId] = peer.PublicKey

	if len(m.bootstrapOnline) < len(m.bootstrapRoster) {
		return nil, nil
	}

	assignments, err := quorum.AssignBootstrapQuorums(m.bootstrapPubkeys, clampSize(m.cfg.HarvesterSize), clampSize(m.cfg.FarmerSize))
	if err != nil {
		return nil, fmt.Errorf("handle_node_added_to_peer_list: %w", err)
	}
	m.setState(StateAssigningQuorums)
	return assignments, nil
}

// HandleQuorumMembershipAssignmentCreated implements
// handle_quorum_membership_assignment_created: rejects if the local node is
// Bootstrap or already in a quorum, otherwise installs the assignment and
// advances to DKG.
func (m *Module) HandleQuorumMembershipAssignmentCreated(assignment types.AssignedQuorumMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.NodeType == config.NodeBootstrap {
		return fmt.Errorf("handle_quorum_membership_assignment_created: %w: bootstrap nodes do not join quorums", ErrRoleViolation)
	}
	if _, _, ok := m.membership.QuorumOf(assignment.NodeId); ok {
		return fmt.Errorf("handle_quorum_membership_assignment_created: %w", quorum.ErrQuorumAlreadyAssigned)
	}

	if err := quorum.Install(m.membership, []types.AssignedQuorumMembership{assignment}); err != nil {
		return fmt.Errorf("handle_quorum_membership_assignment_created: %w", err)
	}
	m.setState(StateDKG)
	return nil
}

// HandleQuorumElectionStarted implements handle_quorum_election_started,
// delegating the election to C3 and emitting a QuorumElected event per
// resulting quorum.
func (m *Module) HandleQuorumElectionStarted(header types.BlockHeader, claims []types.Claim) (*quorum.ElectedQuorums, error) {
	m.mu.Lock()
	harvesterSize := clampSize(m.cfg.HarvesterSize)
	farmerSize := clampSize(m.cfg.FarmerSize)
	farmerCount := clampSize(m.cfg.FarmerCount)
	m.mu.Unlock()

	elected, err := quorum.ElectQuorums(claims, header.BlockSeed, harvesterSize, farmerCount, farmerSize)
	if err != nil {
		return nil, fmt.Errorf("handle_quorum_election_started: %w", err)
	}

	rlog := log.WithRound(m.log, header.Round)
	rlog.Infow("quorum election complete", "farmers", len(elected.Farmers))

	m.publisher.Publish(QuorumElected{Quorum: *elected.Harvester})
	for _, f := range elected.Farmers {
		m.publisher.Publish(QuorumElected{Quorum: *f})
	}
	return elected, nil
}

// HandleMinerElectionStarted implements handle_miner_election_started: it
// runs the miner election via C3 (memoized through an ElectionCache), stores
// the top-MinerElectionWindow backup list for later convergence prechecks,
// and emits the winner as a MinerElected event.
func (m *Module) HandleMinerElectionStarted(header types.BlockHeader, claims []types.Claim) ([]quorum.ElectedClaim, error) {
	ranked, err := m.electionCache.GetOrElectMiner(claims, header.BlockSeed)
	if err != nil {
		return nil, fmt.Errorf("handle_miner_election_started: %w", err)
	}

	m.mu.Lock()
	m.setState(StateElectingMiner)
	top := make([]types.NodeId, len(ranked))
	for i, ec := range ranked {
		top[i] = ec.Claim.NodeId
	}
	m.topMiners = top
	m.setState(StateReadyForRound)
	m.roundStartedAt = m.now()
	m.mu.Unlock()

	winner := ranked[0]
	m.metrics.MinerElection(winner.Claim.NodeId == m.self)
	log.WithRound(m.log, header.Round).Infow("miner election complete", "winner", winner.Claim.NodeId)
	m.publisher.Publish(MinerElected{Pointer: winner.Pointer.Bytes(), Claim: winner.Claim})
	return ranked, nil
}

// CastVoteOnTransactionKind implements cast_vote_on_transaction_kind: only a
// Farmer may vote; it signs a Vote over (digest, verdict) and broadcasts it.
func (m *Module) CastVoteOnTransactionKind(txn types.Transaction, isValid bool) (types.Vote, error) {
	if !m.isFarmer() {
		return types.Vote{}, fmt.Errorf("cast_vote_on_transaction_kind: %w: local node is not a farmer", ErrRoleViolation)
	}

	vote := types.Vote{
		FarmerNodeId: m.self,
		TxnDigest:    txn.Digest(),
		IsValid:      isValid,
	}
	sig, err := m.signer.Sign(vote.SigningMessage())
	if err != nil {
		return types.Vote{}, fmt.Errorf("cast_vote_on_transaction_kind: sign vote: %w", err)
	}
	vote.Signature = sig

	m.publisher.Publish(VoteBroadcast{Vote: vote})
	return vote, nil
}

// InsertVoteIntoVotePool implements insert_vote_into_vote_pool: only a
// Harvester may accumulate votes; it delegates to C5 after resolving the
// voter's quorum through the current membership table.
func (m *Module) InsertVoteIntoVotePool(vote types.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.votes.Insert(vote, m.isHarvester(), m.membership); err != nil {
		return fmt.Errorf("insert_vote_into_vote_pool: %w", err)
	}

	quorumID, _, _ := m.membership.QuorumOf(vote.FarmerNodeId)
	grouped := m.votes.GroupByValidity(quorumID, vote.TxnDigest)
	m.metrics.VotePoolSize(fmt.Sprintf("%x", quorumID[:]), len(grouped[true])+len(grouped[false]))
	return nil
}

// SignConvergenceBlock implements sign_convergence_block: only a Harvester
// may sign; it produces this node's own ECDSA signature over the block
// hash, starts the convergence timeout if none is running for that block
// yet, and broadcasts the partial signature.
func (m *Module) SignConvergenceBlock(conv types.ConvergenceBlock) ([]byte, error) {
	if !m.isHarvester() {
		return nil, fmt.Errorf("sign_convergence_block: %w: local node is not a harvester", ErrRoleViolation)
	}

	hash := conv.Hash()
	sig, err := m.signer.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign_convergence_block: %w", err)
	}

	m.mu.Lock()
	m.setState(StateSignBlock)
	m.pendingConvergence[hash] = conv
	if timeout := m.cfg.ConvergenceTimeout(); timeout > 0 {
		if _, exists := m.convergenceDeadline[hash]; !exists {
			m.convergenceDeadline[hash] = m.now().Add(timeout)
		}
	}
	m.mu.Unlock()

	if err := m.HandleHarvesterSignatureReceivedLocal(hash, m.self, sig); err != nil {
		m.log.Warnw("failed to record own convergence signature", "error", err)
	}

	m.publisher.Publish(ConvergencePartialSignComplete{BlockHash: hash, NodeId: m.self, Signature: sig})
	return sig, nil
}

// HandleHarvesterSignatureReceivedLocal records a signature without the
// self-signing side effects HandleHarvesterSignatureReceived performs (used
// internally so SignConvergenceBlock's own signature doesn't re-trigger
// another Sign call).
func (m *Module) HandleHarvesterSignatureReceivedLocal(blockHash types.BlockHash, nodeID types.NodeId, sig []byte) error {
	_, err := m.recordHarvesterSignature(blockHash, nodeID, sig)
	return err
}

// HandleHarvesterSignatureReceived implements
// handle_harvester_signature_received: accumulates per-block signatures;
// once the count exceeds the configured threshold it certifies the block
// (running the convergence precheck first) and emits both
// CertificateCreated and BlockConfirmed.
func (m *Module) HandleHarvesterSignatureReceived(blockHash types.BlockHash, nodeID types.NodeId, sig []byte) (*types.Certificate, error) {
	cert, err := m.recordHarvesterSignature(blockHash, nodeID, sig)
	if err != nil || cert == nil {
		return cert, err
	}

	m.publisher.Publish(CertificateCreated{Certificate: *cert})
	wire, err := cert.MarshalBinary()
	if err != nil {
		return cert, fmt.Errorf("handle_harvester_signature_received: marshal certificate: %w", err)
	}

	m.mu.Lock()
	started := m.roundStartedAt
	m.mu.Unlock()
	if !started.IsZero() {
		m.metrics.RoundDuration(m.now().Sub(started))
	}

	m.publisher.Publish(BlockConfirmed{CertificateBytes: wire})
	return cert, nil
}

// recordHarvesterSignature folds one signature into the pending set for
// blockHash and, once the threshold is crossed, certifies it. It returns a
// nil certificate (and nil error) while accumulation is still in progress.
func (m *Module) recordHarvesterSignature(blockHash types.BlockHash, nodeID types.NodeId, sig []byte) (*types.Certificate, error) {
	m.mu.Lock()
	if deadline, ok := m.convergenceDeadline[blockHash]; ok && m.now().After(deadline) {
		delete(m.pendingSignatures, blockHash)
		delete(m.pendingConvergence, blockHash)
		delete(m.convergenceDeadline, blockHash)
		m.mu.Unlock()
		return nil, fmt.Errorf("handle_harvester_signature_received: %w", ErrConvergenceTimedOut)
	}

	sigs, ok := m.pendingSignatures[blockHash]
	if !ok {
		sigs = make(map[types.NodeId][]byte)
		m.pendingSignatures[blockHash] = sigs
	}
	sigs[nodeID] = sig

	threshold := int(m.cfg.ThresholdConfig.Threshold)
	if len(sigs) <= threshold {
		m.mu.Unlock()
		return nil, nil
	}

	conv, haveConv := m.pendingConvergence[blockHash]
	m.setState(StateCertifyBlock)
	certs := make([]types.NodeSignature, 0, len(sigs))
	for id, s := range sigs {
		certs = append(certs, types.NodeSignature{NodeId: id, Signature: s})
	}
	delete(m.pendingSignatures, blockHash)
	delete(m.pendingConvergence, blockHash)
	delete(m.convergenceDeadline, blockHash)
	m.mu.Unlock()

	var cert *types.Certificate
	var err error
	if haveConv {
		cert, err = m.CertifyConvergenceBlock(conv, m.dagGraph, certs)
	} else {
		cert, err = m.CertifyBlock(blockHash, types.BlockHash{}, certs)
	}
	if err != nil {
		return nil, fmt.Errorf("handle_harvester_signature_received: %w", err)
	}

	m.mu.Lock()
	m.setState(StateReadyForRound)
	m.mu.Unlock()
	return cert, nil
}

// CertifyBlock implements certify_block: requires more signatures than the
// configured threshold and that every one verifies under the Harvester
// roster, then constructs the Certificate.
func (m *Module) CertifyBlock(blockHash types.BlockHash, rootHash types.BlockHash, certs []types.NodeSignature) (*types.Certificate, error) {
	if err := m.verifyThresholdSignatures(blockHash, certs); err != nil {
		return nil, fmt.Errorf("certify_block: %w", err)
	}

	m.metrics.CertificateProduced()
	return &types.Certificate{
		BlockHash:  blockHash,
		RootHash:   rootHash,
		Signatures: certs,
	}, nil
}

// verifyThresholdSignatures checks that certs crosses the configured
// threshold and every entry verifies against blockHash under the current
// quorum roster, shared by CertifyBlock (producing a new certificate) and
// Dispatch's CertificateReceived case (verifying one received from a peer).
func (m *Module) verifyThresholdSignatures(blockHash types.BlockHash, certs []types.NodeSignature) error {
	threshold := int(m.cfg.ThresholdConfig.Threshold)
	if len(certs) <= threshold {
		return fmt.Errorf("%w: have %d, need > %d", ErrInsufficientSignatures, len(certs), threshold)
	}
	if err := m.signer.VerifyBatch(certs, blockHash[:]); err != nil {
		return err
	}
	return nil
}

// CertifyConvergenceBlock implements certify_convergence_block: it runs the
// convergence precheck (C6) before certifying, refusing to sign whenever
// either half of the precheck tuple is false (per spec.md §9's adopted
// policy).
func (m *Module) CertifyConvergenceBlock(conv types.ConvergenceBlock, dagReader block.ProposalSource, certs []types.NodeSignature) (*types.Certificate, error) {
	m.mu.Lock()
	topMiners := append([]types.NodeId(nil), m.topMiners...)
	resolver := m.resolver
	m.mu.Unlock()

	txnsOK, claimsOK, err := block.PrecheckConvergence(conv, topMiners, dagReader, resolver)
	if err != nil {
		return nil, fmt.Errorf("certify_convergence_block: %w", err)
	}
	if !txnsOK || !claimsOK {
		return nil, fmt.Errorf("certify_convergence_block: %w", ErrConvergencePrecheckFailed)
	}

	return m.CertifyBlock(conv.Hash(), conv.Header.LastHash, certs)
}

// Dispatch routes one inbound Event to its handler, applying spec.md §7's
// propagation policy: per-transaction validation failures are folded into a
// negative vote rather than surfaced; role/membership violations, and any
// error from handling a joined peer or a harvester signature, are logged and
// dropped; an incoming certificate that fails verification is answered with
// an InvalidBlock event; every other error is returned to the caller.
func (m *Module) Dispatch(ctx context.Context, event Event) error {
	switch e := event.(type) {
	case PeerJoined:
		assignments, err := m.HandleNodeAddedToPeerList(e)
		if err != nil {
			m.logDropped("handle_node_added_to_peer_list", err)
			return nil
		}
		for _, a := range assignments {
			if err := m.HandleQuorumMembershipAssignmentCreated(a); err != nil {
				m.logDropped("handle_quorum_membership_assignment_created", err)
			}
		}
		return nil

	case QuorumMembershipAssignmentsCreated:
		if err := m.HandleQuorumMembershipAssignmentCreated(e.Assignment); err != nil {
			m.logDropped("handle_quorum_membership_assignment_created", err)
		}
		return nil

	case MinerElectionStarted:
		_, err := m.HandleMinerElectionStarted(e.Header, e.Claims)
		return err

	case QuorumElectionStarted:
		_, err := m.HandleQuorumElectionStarted(e.Header, e.Claims)
		return err

	case NewTxnCreated:
		return m.validateAndVote(ctx, e.Txn)

	case TxnAddedToMempool:
		if m.mempool == nil {
			return fmt.Errorf("consensus: dispatch TxnAddedToMempool: no mempool configured")
		}
		txn, err := validator.TransactionKind(e.Digest, m.mempool)
		if err != nil {
			return fmt.Errorf("consensus: dispatch TxnAddedToMempool: %w", err)
		}
		return m.validateAndVote(ctx, txn)

	case BlockReceived:
		return m.appendBlock(e.Block)

	case ConvergenceBlockPrecheckRequested:
		m.mu.Lock()
		topMiners := append([]types.NodeId(nil), m.topMiners...)
		resolver := m.resolver
		m.mu.Unlock()
		txnsOK, claimsOK, err := block.PrecheckConvergence(e.Block, topMiners, m.dagGraph, resolver)
		if err != nil {
			return fmt.Errorf("consensus: dispatch ConvergenceBlockPrecheckRequested: %w", err)
		}
		if !txnsOK || !claimsOK {
			m.log.Warnw("convergence block failed precheck, refusing to sign", "block_hash", e.Block.Hash())
			return nil
		}
		_, err = m.SignConvergenceBlock(e.Block)
		return err

	case SignConvergenceBlock:
		_, err := m.SignConvergenceBlock(e.Block)
		return err

	case HarvesterSignatureReceived:
		if _, err := m.HandleHarvesterSignatureReceived(e.BlockHash, e.NodeId, e.Signature); err != nil {
			m.logDropped("handle_harvester_signature_received", err)
		}
		return nil

	case CertificateReceived:
		cert := e.Certificate
		if err := m.verifyThresholdSignatures(cert.BlockHash, cert.Signatures); err != nil {
			m.log.Warnw("rejecting invalid incoming certificate", "block_hash", cert.BlockHash, "error", err)
			m.publisher.Publish(InvalidBlock{BlockHash: cert.BlockHash, Reason: err.Error()})
			return nil
		}
		m.log.Infow("certificate received", "block_hash", cert.BlockHash)
		return nil

	case BlockConfirmedReceived:
		m.log.Infow("block confirmed received", "bytes", len(e.CertificateBytes))
		return nil

	case Stop:
		return ErrStop

	default:
		return fmt.Errorf("consensus: unknown event type %T", event)
	}
}

// validateAndVote runs C4 over a single transaction and, if the local node
// is a Farmer, casts and broadcasts a vote reflecting the verdict. A
// ValidationError never aborts the round: it is folded into IsValid=false,
// matching spec.md §7's propagation policy.
func (m *Module) validateAndVote(ctx context.Context, txn types.Transaction) error {
	results, err := m.validatorCore.Validate(ctx, []types.Transaction{txn}, m.state, m.dup)
	if err != nil {
		return fmt.Errorf("consensus: validate transaction: %w", err)
	}
	if !m.isFarmer() {
		return nil
	}
	_, err = m.CastVoteOnTransactionKind(txn, results[0].Err == nil)
	return err
}

// appendBlock routes a received Block to the right dag.Graph operation by
// its tag.
func (m *Module) appendBlock(b types.Block) error {
	switch b.Kind {
	case types.BlockGenesis:
		return m.dagGraph.AppendGenesis(*b.Genesis)
	case types.BlockProposal:
		return m.dagGraph.AppendProposal(*b.Proposal)
	case types.BlockConvergence:
		return m.dagGraph.AppendConvergence(*b.Convergence)
	default:
		return fmt.Errorf("consensus: block has no recognized kind")
	}
}

func (m *Module) logDropped(op string, err error) {
	m.log.Warnw("dropped event after rule violation", "operation", op, "error", err)
}

// Run consumes events from the channel until ctx is cancelled or a Stop
// event is dispatched, honoring spec.md §5's cancellation rule: in-flight
// Dispatch calls are allowed to complete; nothing is forcibly aborted
// mid-handler.
func (m *Module) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := m.Dispatch(ctx, e); err != nil {
				if err == ErrStop {
					return nil
				}
				return err
			}
		}
	}
}

// Package metrics exposes the consensus core's Prometheus instrumentation,
// grounded on the teacher's own metrics/metrics.go: one registry and a set
// of package-level counters/gauges the rest of the module writes to
// directly, rather than threading a metrics client through every call.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DKGPhase mirrors dkgengine's state machine for dashboards.
type DKGPhase int

const (
	DKGCollect DKGPhase = iota
	DKGPartGenerated
	DKGAckIssued
	DKGAckProcessed
	DKGFinalized
)

var (
	// Registry is the consensus core's Prometheus registry. The embedding
	// daemon is expected to expose it over /metrics, same as the teacher does
	// for its own registries.
	Registry = prometheus.NewRegistry()

	// DKGPhaseGauge reports the current DKGPhase (as its integer value) for
	// this node's running DKG attempt.
	DKGPhaseGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "consensus_dkg_phase",
		Help: "Current phase of the local node's DKG state machine (0=Collect..4=Finalized)",
	})

	// ElectedMinerCounter counts miner elections this node has observed,
	// labeled by whether the local node won.
	ElectedMinerCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consensus_miner_elections_total",
		Help: "Number of miner elections observed, labeled by whether the local node won",
	}, []string{"won"})

	// VotePoolSize reports the number of votes currently held for a
	// (quorum, digest) pair at the moment it was last updated.
	VotePoolSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "consensus_vote_pool_size",
		Help: "Number of votes currently recorded for a quorum/digest pair",
	}, []string{"quorum_id"})

	// CertificatesProduced counts certified blocks this node has issued.
	CertificatesProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consensus_certificates_produced_total",
		Help: "Number of block certificates this node has produced",
	})

	// RoundDuration observes wall-clock time spent in ReadyForRound before a
	// BlockConfirmed event is emitted.
	RoundDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "consensus_round_duration_seconds",
		Help:    "Duration of a consensus round from election to certification",
		Buckets: prometheus.DefBuckets,
	})

	// SignatureFailures counts rejected harvester signatures by the failing
	// node, fed by ThresholdMonitor.
	SignatureFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consensus_signature_failures_total",
		Help: "Number of harvester signatures that failed verification, labeled by node",
	}, []string{"node_id"})
)

func init() {
	Registry.MustRegister(
		DKGPhaseGauge,
		ElectedMinerCounter,
		VotePoolSize,
		CertificatesProduced,
		RoundDuration,
		SignatureFailures,
	)
}

// Recorder is the convenience wrapper the Consensus Module embeds so call
// sites read as method calls against a field instead of reaching into this
// package's globals directly. It carries no state of its own; every method
// forwards to the package-level collectors above.
type Recorder struct{}

// NewRecorder returns a Recorder. There is never more than one useful
// instance per process since the underlying collectors are package globals,
// but embedding a value (rather than calling package functions straight)
// keeps consensus.Module's dependencies explicit and mockable in tests.
func NewRecorder() *Recorder { return &Recorder{} }

func (*Recorder) DKGPhase(p DKGPhase) {
	DKGPhaseGauge.Set(float64(p))
}

func (*Recorder) MinerElection(localNodeWon bool) {
	ElectedMinerCounter.WithLabelValues(strconv.FormatBool(localNodeWon)).Inc()
}

func (*Recorder) VotePoolSize(quorumID string, n int) {
	VotePoolSize.WithLabelValues(quorumID).Set(float64(n))
}

func (*Recorder) CertificateProduced() {
	CertificatesProduced.Inc()
}

func (*Recorder) RoundDuration(d time.Duration) {
	RoundDuration.Observe(d.Seconds())
}

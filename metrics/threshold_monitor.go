package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vrrb-io/vrrb-consensus/common/log"
	"github.com/vrrb-io/vrrb-consensus/types"
)

// ThresholdMonitor watches how many distinct harvesters produced a rejected
// signature within a rolling period and escalates once that count crosses
// the certification threshold, the same way a Harvester quorum would notice
// it is losing ground on certifying blocks. It is independent of
// consensus.Module so a node can run one per quorum it harvests for.
type ThresholdMonitor struct {
	lock              sync.RWMutex
	log               log.Logger
	quorumID          string
	threshold         int
	failedSigners     map[types.NodeId]bool
	ctx               context.Context
	cancel            func()
	period            time.Duration
}

// NewThresholdMonitor builds a monitor for quorumID, escalating once
// threshold distinct signers fail within one rolling period (default one
// minute).
func NewThresholdMonitor(quorumID string, l log.Logger, threshold int) *ThresholdMonitor {
	if l == nil {
		l = log.DefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ThresholdMonitor{
		log:           l.Named("threshold-monitor"),
		quorumID:      quorumID,
		threshold:     threshold,
		failedSigners: make(map[types.NodeId]bool),
		ctx:           ctx,
		cancel:        cancel,
		period:        time.Minute,
	}
}

// Start runs the monitor's reporting loop until Stop is called.
func (t *ThresholdMonitor) Start() {
	t.log.Infow("starting threshold monitor", "quorum_id", t.quorumID)

	go func() {
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()
		for {
			select {
			case <-t.ctx.Done():
				t.log.Infow("ending threshold monitor", "quorum_id", t.quorumID)
				return
			case <-ticker.C:
				t.report()
			}
		}
	}()
}

func (t *ThresholdMonitor) report() {
	t.lock.Lock()
	defer t.lock.Unlock()

	failing := make([]string, 0, len(t.failedSigners))
	for node := range t.failedSigners {
		failing = append(failing, string(node))
	}

	switch {
	case len(failing) >= t.threshold:
		t.log.Errorw("signature failures crossed the certification threshold in the last period",
			"quorum_id", t.quorumID, "threshold", t.threshold, "failures", len(failing), "nodes", strings.Join(failing, ","))
	case len(failing) >= t.threshold/2:
		t.log.Warnw("signature failures crossed half the certification threshold in the last period",
			"quorum_id", t.quorumID, "threshold", t.threshold, "failures", len(failing), "nodes", strings.Join(failing, ","))
	default:
		t.log.Debugw("threshold monitor healthy",
			"quorum_id", t.quorumID, "threshold", t.threshold, "failures", len(failing))
	}

	t.failedSigners = make(map[types.NodeId]bool)
}

// Stop ends the reporting loop.
func (t *ThresholdMonitor) Stop() {
	t.cancel()
}

// ReportFailure records a rejected signature from node, incrementing the
// SignatureFailures counter immediately and folding it into the next
// periodic report.
func (t *ThresholdMonitor) ReportFailure(node types.NodeId) {
	t.lock.Lock()
	t.failedSigners[node] = true
	t.lock.Unlock()
	SignatureFailures.WithLabelValues(string(node)).Inc()
}

// UpdateThreshold changes the escalation threshold, used when the Harvester
// quorum's size changes on epoch roll.
func (t *ThresholdMonitor) UpdateThreshold(newThreshold int) {
	t.lock.Lock()
	t.threshold = newThreshold
	t.lock.Unlock()
}

package consensus

import "errors"

// RoleViolation/MembershipError sentinels, per spec.md §7. Every handler
// that enforces a role or membership precondition wraps one of these so
// callers can match with errors.Is regardless of which handler produced it.
var (
	ErrRoleViolation = errors.New("consensus: operation not permitted for this node's role")
	ErrMembership    = errors.New("consensus: quorum membership violation")

	ErrNotBootstrapping       = errors.New("consensus: node is not configured as bootstrap")
	ErrPeerNotInBootstrapRoster = errors.New("consensus: peer is not part of the configured bootstrap roster")

	ErrConvergencePrecheckFailed = errors.New("consensus: convergence block failed precheck")
	ErrInsufficientSignatures    = errors.New("consensus: fewer signatures than the configured threshold")
	ErrConvergenceTimedOut       = errors.New("consensus: convergence signing window elapsed")
	ErrUnknownConvergenceBlock   = errors.New("consensus: no pending convergence block for that hash")

	// ErrStop is returned by Dispatch/Run when a Stop event ends the event
	// loop; callers should treat it as a clean shutdown signal, not a
	// failure.
	ErrStop = errors.New("consensus: stop event received")
)

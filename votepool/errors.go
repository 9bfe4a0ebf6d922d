package votepool

import "errors"

// RoleViolation/MembershipError sentinels, per spec.md §7.
var (
	ErrNotAHarvester        = errors.New("votepool: local node is not a harvester")
	ErrVoterNotInFarmerQuorum = errors.New("votepool: voter is not a member of the named farmer quorum")
)

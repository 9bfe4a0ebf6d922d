package dkgengine

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share"
	pedersen "go.dedis.ch/kyber/v3/share/dkg/pedersen"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// Part is the commitment a node broadcasts to every other participant,
// wrapping the per-recipient encrypted deals kyber's pedersen DKG produces
// for a single issuing node (spec.md's "local Part commitment").
type Part struct {
	Issuer types.NodeId
	Index  uint32
	// Deals is keyed by recipient index in the sorted participant list.
	Deals map[int]*pedersen.Deal
}

// Ack is one node's verified acknowledgement of a single deal inside a Part.
type Ack struct {
	// Issuer is the node whose Part this Ack responds to.
	Issuer types.NodeId
	// Responder is the node that produced this Ack.
	Responder types.NodeId
	Response  *pedersen.Response
}

// PublicKeySet is the threshold public key produced once the DKG finalizes:
// the commitments of the joint secret polynomial, usable to verify any
// t-of-n partial signature produced against SecretKeyShare.
type PublicKeySet struct {
	Poly *share.PubPoly
}

// Public returns the group's joint public key.
func (p *PublicKeySet) Public() kyber.Point {
	if p == nil || p.Poly == nil {
		return nil
	}
	return p.Poly.Commit()
}

// SecretKeyShare is this node's share of the joint secret, usable with
// go.dedis.ch/kyber/v3/sign/tbls to produce partial threshold signatures.
type SecretKeyShare struct {
	Share *share.PriShare
}

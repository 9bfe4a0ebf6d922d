// Package signer implements C1: per-node ECDSA signing, batch verification
// against the current quorum roster, and roster management.
package signer

import (
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/hashicorp/go-multierror"

	"github.com/vrrb-io/vrrb-consensus/common/log"
	"github.com/vrrb-io/vrrb-consensus/types"
)

// Sentinel errors, as specified by the CertificateError/ValidationError
// taxonomy (spec.md §7): signature verification reports which member failed,
// never an opaque boolean.
var (
	ErrUnknownMember = errors.New("signer: unknown quorum member")
	ErrBadSignature  = errors.New("signer: signature does not verify")
)

// UnknownMemberError names the NodeId verify_batch could not resolve.
type UnknownMemberError struct {
	NodeId types.NodeId
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("signer: unknown member %q", e.NodeId)
}

func (e *UnknownMemberError) Unwrap() error { return ErrUnknownMember }

// BadSignatureError names the NodeId whose signature failed to verify.
type BadSignatureError struct {
	NodeId types.NodeId
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("signer: bad signature from %q", e.NodeId)
}

func (e *BadSignatureError) Unwrap() error { return ErrBadSignature }

// Signer holds a node's ECDSA key pair and the roster used to verify other
// members' signatures.
type Signer struct {
	mu      sync.RWMutex
	priv    *secp256k1.PrivateKey
	pub     *secp256k1.PublicKey
	members map[types.NodeId]*secp256k1.PublicKey
	log     log.Logger
}

// New constructs a Signer from a freshly generated key pair.
func New(l log.Logger) (*Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("signer: generate key: %w", err)
	}
	return NewFromKey(priv, l), nil
}

// NewFromKey wraps an existing private key.
func NewFromKey(priv *secp256k1.PrivateKey, l log.Logger) *Signer {
	if l == nil {
		l = log.DefaultLogger()
	}
	return &Signer{
		priv:    priv,
		pub:     priv.PubKey(),
		members: make(map[types.NodeId]*secp256k1.PublicKey),
		log:     l.Named("signer"),
	}
}

// PublicKey returns this node's public key bytes (compressed SEC1).
func (s *Signer) PublicKey() []byte {
	return s.pub.SerializeCompressed()
}

// Sign produces the ECDSA signature of SHA-256(msg), encoded as the fixed
// 64-byte R||S form spec.md §6's wire format names ("sig (64)") rather than
// the library's native variable-length DER encoding.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(s.priv, digest[:])
	raw, err := derToRaw(sig.Serialize())
	if err != nil {
		return nil, fmt.Errorf("signer: encode signature: %w", err)
	}
	return raw, nil
}

// Verify checks the 64-byte R||S sig against SHA-256(msg) under pub.
func Verify(pub *secp256k1.PublicKey, msg, sig []byte) bool {
	der, err := rawToDER(sig)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return parsed.Verify(digest[:], pub)
}

// asn1Signature mirrors the SEQUENCE{INTEGER r, INTEGER s} DER layout every
// ECDSA library encodes/decodes, used here only to round-trip between that
// and the fixed-width wire form without reaching into the signing library's
// unexported Signature fields.
type asn1Signature struct {
	R, S *big.Int
}

// derToRaw converts a DER-encoded ECDSA signature to 32-byte-R || 32-byte-S,
// left-padding each half to 32 bytes (secp256k1's order is 256 bits, so
// neither half ever overflows that width).
func derToRaw(der []byte) ([]byte, error) {
	var sig asn1Signature
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, fmt.Errorf("decode DER signature: %w", err)
	}
	raw := make([]byte, 64)
	sig.R.FillBytes(raw[:32])
	sig.S.FillBytes(raw[32:])
	return raw, nil
}

// rawToDER is derToRaw's inverse, reconstructing the DER encoding
// ecdsa.ParseDERSignature expects from the 64-byte wire form.
func rawToDER(raw []byte) ([]byte, error) {
	if len(raw) != 64 {
		return nil, fmt.Errorf("raw signature must be 64 bytes, got %d", len(raw))
	}
	sig := asn1Signature{
		R: new(big.Int).SetBytes(raw[:32]),
		S: new(big.Int).SetBytes(raw[32:]),
	}
	return asn1.Marshal(sig)
}

// SetQuorumMembers atomically replaces the roster used by VerifyBatch.
func (s *Signer) SetQuorumMembers(members map[types.NodeId][]byte) error {
	next := make(map[types.NodeId]*secp256k1.PublicKey, len(members))
	for id, raw := range members {
		pub, err := secp256k1.ParsePubKey(raw)
		if err != nil {
			return fmt.Errorf("signer: parse pubkey for %q: %w", id, err)
		}
		next[id] = pub
	}

	s.mu.Lock()
	s.members = next
	s.mu.Unlock()
	return nil
}

// QuorumMembers returns a snapshot of the current roster's raw public keys.
func (s *Signer) QuorumMembers() map[types.NodeId][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.NodeId][]byte, len(s.members))
	for id, pub := range s.members {
		out[id] = pub.SerializeCompressed()
	}
	return out
}

// VerifyBatch verifies every (NodeId, Signature) pair against msg under the
// roster. It returns only the first failing entry's error (callers decide
// retry vs. reject on that) and logs how many entries failed in total;
// VerifyBatchAll returns every failure for callers that need them all.
func (s *Signer) VerifyBatch(items []types.NodeSignature, msg []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs *multierror.Error
	var first error
	for _, item := range items {
		pub, ok := s.members[item.NodeId]
		if !ok {
			err := &UnknownMemberError{NodeId: item.NodeId}
			errs = multierror.Append(errs, err)
			if first == nil {
				first = err
			}
			continue
		}
		if !Verify(pub, msg, item.Signature) {
			err := &BadSignatureError{NodeId: item.NodeId}
			errs = multierror.Append(errs, err)
			if first == nil {
				first = err
			}
			continue
		}
	}
	if first != nil {
		s.log.Warnw("verify_batch found invalid signatures", "count", len(errs.Errors))
		return first
	}
	return nil
}

// VerifyBatchAll is like VerifyBatch but returns the full set of failures
// instead of only the first.
func (s *Signer) VerifyBatchAll(items []types.NodeSignature, msg []byte) *multierror.Error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs *multierror.Error
	for _, item := range items {
		pub, ok := s.members[item.NodeId]
		if !ok {
			errs = multierror.Append(errs, &UnknownMemberError{NodeId: item.NodeId})
			continue
		}
		if !Verify(pub, msg, item.Signature) {
			errs = multierror.Append(errs, &BadSignatureError{NodeId: item.NodeId})
		}
	}
	return errs
}

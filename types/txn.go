package types

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// TxnDigest identifies a transaction by the SHA-256 of its canonical body.
type TxnDigest [32]byte

// Token describes the asset a transaction moves. The zero value is VRRB's
// native token, mirroring the Rust Token::default().
type Token struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// DefaultToken is the native token used when a Transaction does not name one.
var DefaultToken = Token{Name: "VRRB", Symbol: "VRRB", Decimals: 18}

// Transaction is the basic unit of state change.
type Transaction struct {
	Timestamp      int64
	SenderAddress  string
	SenderPubKey   []byte
	ReceiverAddr   string
	Amount         *big.Int
	Token          Token
	Signature      []byte
	Nonce          uint64
}

// canonicalBody returns the byte sequence the digest and signature are
// computed over: everything but the signature itself.
func (t Transaction) canonicalBody() []byte {
	var buf []byte
	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], uint64(t.Timestamp))
	buf = append(buf, tsBytes[:]...)
	buf = append(buf, []byte(t.SenderAddress)...)
	buf = append(buf, t.SenderPubKey...)
	buf = append(buf, []byte(t.ReceiverAddr)...)
	if t.Amount != nil {
		buf = append(buf, t.Amount.Bytes()...)
	}
	buf = append(buf, []byte(t.Token.Name)...)
	buf = append(buf, []byte(t.Token.Symbol)...)
	buf = append(buf, t.Token.Decimals)
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], t.Nonce)
	buf = append(buf, nonceBytes[:]...)
	return buf
}

// Digest is the SHA-256 of the transaction's canonical serialization, minus
// its own signature.
func (t Transaction) Digest() TxnDigest {
	return sha256.Sum256(t.canonicalBody())
}

// SigningMessage returns the bytes a Signer signs/verifies against: the
// transaction digest itself.
func (t Transaction) SigningMessage() []byte {
	d := t.Digest()
	return d[:]
}

// Vote is a Farmer's signed assertion about a single transaction's validity.
type Vote struct {
	FarmerNodeId NodeId
	TxnDigest    TxnDigest
	IsValid      bool
	Signature    []byte
}

// SigningMessage is the canonical encoding a Vote's signature covers: the
// voted transaction's digest together with the verdict, so a flipped verdict
// invalidates the signature.
func (v Vote) SigningMessage() []byte {
	msg := make([]byte, 0, 33)
	msg = append(msg, v.TxnDigest[:]...)
	if v.IsValid {
		msg = append(msg, 1)
	} else {
		msg = append(msg, 0)
	}
	return msg
}

// QuorumCertifiedTxn is a transaction plus a threshold signature over its
// digest from a Farmer quorum, crossing the quorum threshold t.
type QuorumCertifiedTxn struct {
	Txn        Transaction
	Signatures map[NodeId][]byte
	IsValid    bool
}

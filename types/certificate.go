package types

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// NodeSignature pairs a signer with its ECDSA signature over a block hash.
type NodeSignature struct {
	NodeId    NodeId
	Signature []byte
}

// Certificate is the threshold-signed proof that a block was accepted by the
// current Harvester roster.
type Certificate struct {
	BlockHash BlockHash
	// RootHash is the prior txn-root the certified block builds on.
	RootHash BlockHash
	// Signatures is valid when len(Signatures) exceeds the configured
	// threshold and every entry verifies under the Harvester roster.
	Signatures []NodeSignature
	// Inauguration carries a new quorum roster when this block rotates the
	// epoch; nil otherwise.
	Inauguration *QuorumMembership
}

var (
	ErrShortCertificate   = errors.New("types: certificate buffer too short")
	ErrMalformedSignature = errors.New("types: non-canonical signature encoding")
)

// MarshalBinary encodes the certificate as a length-prefixed concatenation of
// {block_hash(32), root_hash(32), inauguration(optional tagged roster),
// signatures([node_id_len, node_id_bytes, sig(64)]*)}.
func (c Certificate) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(c.BlockHash[:])
	buf.Write(c.RootHash[:])

	if c.Inauguration == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		if err := marshalMembership(&buf, c.Inauguration); err != nil {
			return nil, err
		}
	}

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(c.Signatures)))
	buf.Write(countBuf[:])

	for _, sig := range c.Signatures {
		if len(sig.Signature) != 64 {
			return nil, ErrMalformedSignature
		}
		var idLen [2]byte
		binary.BigEndian.PutUint16(idLen[:], uint16(len(sig.NodeId)))
		buf.Write(idLen[:])
		buf.WriteString(string(sig.NodeId))
		buf.Write(sig.Signature)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the wire format produced by MarshalBinary.
func (c *Certificate) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if r.Len() < 64 {
		return ErrShortCertificate
	}
	if _, err := io.ReadFull(r, c.BlockHash[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, c.RootHash[:]); err != nil {
		return err
	}

	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if tag == 1 {
		membership, err := unmarshalMembership(r)
		if err != nil {
			return err
		}
		c.Inauguration = membership
	} else {
		c.Inauguration = nil
	}

	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return err
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	sigs := make([]NodeSignature, 0, count)
	for i := uint32(0); i < count; i++ {
		var idLen [2]byte
		if _, err := io.ReadFull(r, idLen[:]); err != nil {
			return err
		}
		idBuf := make([]byte, binary.BigEndian.Uint16(idLen[:]))
		if _, err := io.ReadFull(r, idBuf); err != nil {
			return err
		}
		sig := make([]byte, 64)
		if _, err := io.ReadFull(r, sig); err != nil {
			return err
		}
		sigs = append(sigs, NodeSignature{NodeId: NodeId(idBuf), Signature: sig})
	}
	c.Signatures = sigs
	return nil
}

// marshalMembership writes a minimal tagged encoding of a QuorumMembership:
// only what a certificate inauguration needs (node ids grouped by quorum
// kind), not the full public-key roster which the DAG/state store already
// hold out of band.
func marshalMembership(buf *bytes.Buffer, m *QuorumMembership) error {
	var qCount [4]byte
	binary.BigEndian.PutUint32(qCount[:], uint32(len(m.Quorums)))
	buf.Write(qCount[:])
	for id, q := range m.Quorums {
		buf.Write(id[:])
		buf.WriteByte(byte(q.Kind))
		var mCount [4]byte
		binary.BigEndian.PutUint32(mCount[:], uint32(len(q.Members)))
		buf.Write(mCount[:])
		for node := range q.Members {
			var idLen [2]byte
			binary.BigEndian.PutUint16(idLen[:], uint16(len(node)))
			buf.Write(idLen[:])
			buf.WriteString(string(node))
		}
	}
	return nil
}

func unmarshalMembership(r *bytes.Reader) (*QuorumMembership, error) {
	var qCount [4]byte
	if _, err := io.ReadFull(r, qCount[:]); err != nil {
		return nil, err
	}
	m := NewQuorumMembership()
	n := binary.BigEndian.Uint32(qCount[:])
	for i := uint32(0); i < n; i++ {
		var id QuorumId
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return nil, err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		var mCount [4]byte
		if _, err := io.ReadFull(r, mCount[:]); err != nil {
			return nil, err
		}
		q := &Quorum{Kind: QuorumKind(kindByte), Members: make(map[NodeId][]byte)}
		mn := binary.BigEndian.Uint32(mCount[:])
		for j := uint32(0); j < mn; j++ {
			var idLen [2]byte
			if _, err := io.ReadFull(r, idLen[:]); err != nil {
				return nil, err
			}
			idBuf := make([]byte, binary.BigEndian.Uint16(idLen[:]))
			if _, err := io.ReadFull(r, idBuf); err != nil {
				return nil, err
			}
			q.Members[NodeId(idBuf)] = nil
		}
		m.Quorums[id] = q
	}
	return m, nil
}

package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// BlockHash identifies any vertex in the block DAG (genesis, proposal or
// convergence) by the hash of its header.
type BlockHash [32]byte

// BlockHeader is common to every block kind.
type BlockHeader struct {
	BlockHeight   uint64
	Round         uint64
	BlockSeed     Seed
	NextBlockSeed Seed
	LastHash      BlockHash
	TxnHash       BlockHash
	MinerClaim    Claim
	Signature     []byte
}

// signingBody returns the header bytes a Signature is computed over.
func (h BlockHeader) signingBody() []byte {
	var buf []byte
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], h.BlockHeight)
	buf = append(buf, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], h.Round)
	buf = append(buf, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(h.BlockSeed))
	buf = append(buf, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(h.NextBlockSeed))
	buf = append(buf, u64[:]...)
	buf = append(buf, h.LastHash[:]...)
	buf = append(buf, h.TxnHash[:]...)
	buf = append(buf, h.MinerClaim.OwnerPublicKey...)
	return buf
}

// Hash returns the block hash identifying this header's block in the DAG.
func (h BlockHeader) Hash() BlockHash {
	return sha256.Sum256(h.signingBody())
}

// RewardAllocation is one entry of a Genesis block's initial distribution.
type RewardAllocation struct {
	Address string
	Amount  []byte // big.Int bytes, kept opaque at this layer
}

// GenesisBlock is the single DAG root.
type GenesisBlock struct {
	Header      BlockHeader
	Allocations []RewardAllocation
}

// ProposalBlock is a Farmer-produced candidate block.
type ProposalBlock struct {
	Header      BlockHeader
	RefBlock    BlockHash
	Txns        map[NodeId]map[TxnDigest]struct{}
	Claims      map[NodeId]Claim
}

// Hash returns the stable identity of this proposal in the DAG.
func (p ProposalBlock) Hash() BlockHash { return p.Header.Hash() }

// ConvergenceBlock is a Miner-produced block merging one or more proposals.
type ConvergenceBlock struct {
	Header    BlockHeader
	RefHashes []BlockHash
	// Txns maps each merged proposal's hash to the set of digests that
	// proposal retains after conflict resolution.
	Txns   map[BlockHash]map[TxnDigest]struct{}
	Claims map[BlockHash]map[NodeId]Claim
}

// Hash returns the stable identity of this convergence block in the DAG.
func (c ConvergenceBlock) Hash() BlockHash { return c.Header.Hash() }

// BlockKind tags which variant a Block wraps.
type BlockKind int

const (
	BlockGenesis BlockKind = iota
	BlockProposal
	BlockConvergence
)

// Block is the tagged union over {Genesis, Proposal, Convergence}. Go has no
// native sum type, so exactly one of the three pointer fields is non-nil,
// selected by Kind.
type Block struct {
	Kind        BlockKind
	Genesis     *GenesisBlock
	Proposal    *ProposalBlock
	Convergence *ConvergenceBlock
}

// Hash dispatches to whichever variant is populated.
func (b Block) Hash() BlockHash {
	switch b.Kind {
	case BlockGenesis:
		return b.Genesis.Header.Hash()
	case BlockProposal:
		return b.Proposal.Hash()
	case BlockConvergence:
		return b.Convergence.Hash()
	default:
		return BlockHash{}
	}
}

// Header dispatches to whichever variant is populated.
func (b Block) Header() BlockHeader {
	switch b.Kind {
	case BlockGenesis:
		return b.Genesis.Header
	case BlockProposal:
		return b.Proposal.Header
	case BlockConvergence:
		return b.Convergence.Header
	default:
		return BlockHeader{}
	}
}

// ParentHashes returns every hash this block references, used to wire DAG
// edges uniformly across block kinds.
func (b Block) ParentHashes() []BlockHash {
	switch b.Kind {
	case BlockGenesis:
		return nil
	case BlockProposal:
		return []BlockHash{b.Proposal.RefBlock}
	case BlockConvergence:
		return b.Convergence.RefHashes
	default:
		return nil
	}
}

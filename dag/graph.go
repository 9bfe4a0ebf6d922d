// Package dag implements C7: an append-only graph of block vertices keyed
// by hash, with reader-writer locking matching spec.md §5's "single writer
// / many readers" discipline for the one shared mutable structure the
// Consensus Module does not own outright (votepool is owned outright;
// the DAG is shared with read-side observers like state apply).
package dag

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/emicklei/dot"

	"sync"

	"github.com/vrrb-io/vrrb-consensus/types"
)

type vertex struct {
	block    types.Block
	parents  []types.BlockHash
	children []types.BlockHash
}

// Graph is the append-only block DAG. The zero value is not usable; use
// New.
type Graph struct {
	mu       sync.RWMutex
	vertices map[types.BlockHash]*vertex
	genesis  *types.BlockHash

	ancestorCache *lru.Cache
}

// New returns an empty Graph with an ancestor-query cache sized cacheSize
// (clamped to a minimum of 16, per the hashicorp/golang-lru constructor's
// own requirement that size be positive).
func New(cacheSize int) *Graph {
	if cacheSize < 16 {
		cacheSize = 16
	}
	cache, _ := lru.New(cacheSize)
	return &Graph{
		vertices:      make(map[types.BlockHash]*vertex),
		ancestorCache: cache,
	}
}

// AppendGenesis inserts the single DAG root. Fails if a genesis already
// exists.
func (g *Graph) AppendGenesis(b types.GenesisBlock) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.genesis != nil {
		return ErrDuplicateGenesis
	}
	hash := b.Header.Hash()
	g.vertices[hash] = &vertex{block: types.Block{Kind: types.BlockGenesis, Genesis: &b}}
	g.genesis = &hash
	return nil
}

// AppendProposal inserts p with an edge from p.RefBlock. Fails if the
// parent is missing.
func (g *Graph) AppendProposal(p types.ProposalBlock) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.vertices[p.RefBlock]
	if !ok {
		return ErrNonExistentReference
	}

	hash := p.Hash()
	g.vertices[hash] = &vertex{block: types.Block{Kind: types.BlockProposal, Proposal: &p}, parents: []types.BlockHash{p.RefBlock}}
	parent.children = append(parent.children, hash)
	g.ancestorCache.Purge()
	return nil
}

// AppendConvergence inserts c with edges from every hash in c.RefHashes.
// Parents absent from the graph are silently skipped, but only if at least
// one referenced parent is present; if none are, the append fails.
func (g *Graph) AppendConvergence(c types.ConvergenceBlock) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	present := make([]types.BlockHash, 0, len(c.RefHashes))
	for _, ref := range c.RefHashes {
		if _, ok := g.vertices[ref]; ok {
			present = append(present, ref)
		}
	}
	if len(present) == 0 {
		return ErrNonExistentReference
	}

	hash := c.Hash()
	g.vertices[hash] = &vertex{block: types.Block{Kind: types.BlockConvergence, Convergence: &c}, parents: present}
	for _, ref := range present {
		g.vertices[ref].children = append(g.vertices[ref].children, hash)
	}
	g.ancestorCache.Purge()
	return nil
}

// GetVertex is a snapshot read of the block stored at hash.
func (g *Graph) GetVertex(hash types.BlockHash) (types.Block, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[hash]
	if !ok {
		return types.Block{}, false
	}
	return v.block, true
}

// Proposal resolves hash to a ProposalBlock, implementing
// block.ProposalSource for the convergence precheck.
func (g *Graph) Proposal(hash types.BlockHash) (types.ProposalBlock, bool) {
	b, ok := g.GetVertex(hash)
	if !ok || b.Kind != types.BlockProposal {
		return types.ProposalBlock{}, false
	}
	return *b.Proposal, true
}

// Ancestors returns every vertex reachable by following parent edges from
// hash, hash itself excluded.
func (g *Graph) Ancestors(hash types.BlockHash) []types.BlockHash {
	if v, ok := g.ancestorCache.Get(hash); ok {
		return append([]types.BlockHash(nil), v.([]types.BlockHash)...)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[types.BlockHash]bool)
	var walk func(h types.BlockHash)
	walk = func(h types.BlockHash) {
		v, ok := g.vertices[h]
		if !ok {
			return
		}
		for _, p := range v.parents {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(hash)

	out := make([]types.BlockHash, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	g.ancestorCache.Add(hash, out)
	return out
}

// Descendants returns every vertex reachable by following child edges from
// hash, hash itself excluded.
func (g *Graph) Descendants(hash types.BlockHash) []types.BlockHash {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[types.BlockHash]bool)
	var walk func(h types.BlockHash)
	walk = func(h types.BlockHash) {
		v, ok := g.vertices[h]
		if !ok {
			return
		}
		for _, c := range v.children {
			if !seen[c] {
				seen[c] = true
				walk(c)
			}
		}
	}
	walk(hash)

	out := make([]types.BlockHash, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	return out
}

// Dot renders the current graph as Graphviz DOT source, for operator
// debugging.
func (g *Graph) Dot() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	graph := dot.NewGraph(dot.Directed)
	nodes := make(map[types.BlockHash]dot.Node, len(g.vertices))
	for hash, v := range g.vertices {
		label := "proposal"
		switch v.block.Kind {
		case types.BlockGenesis:
			label = "genesis"
		case types.BlockConvergence:
			label = "convergence"
		}
		n := graph.Node(hashHex(hash)).Attr("label", label)
		nodes[hash] = n
	}
	for hash, v := range g.vertices {
		for _, child := range v.children {
			graph.Edge(nodes[hash], nodes[child])
		}
	}
	return graph.String()
}

func hashHex(h types.BlockHash) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[i*2] = hexDigits[h[i]>>4]
		out[i*2+1] = hexDigits[h[i]&0xF]
	}
	return string(out)
}

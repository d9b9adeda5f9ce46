package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	// MinOrder and MaxOrder bound the supported chain orders.
	MinOrder = 1
	MaxOrder = 6
)

// ErrUnsupportedOrder is returned when constructing or loading a chain whose
// order lies outside [MinOrder, MaxOrder].
var ErrUnsupportedOrder = errors.New("unsupported chain order")

// edge is one weighted successor of a node. The boundary id marks
// "sentence ends here".
type edge struct {
	id    symbol
	count uint32
}

// edgeList holds the successors of one key in insertion order, an index for
// O(1) increments, and the cached count total used for weighted sampling.
type edgeList struct {
	total uint64
	succ  []edge
	index map[symbol]int
}

func newEdgeList() *edgeList {
	return &edgeList{index: make(map[symbol]int)}
}

func (n *edgeList) add(id symbol, count uint32) {
	if i, ok := n.index[id]; ok {
		n.succ[i].count += count
	} else {
		n.index[id] = len(n.succ)
		n.succ = append(n.succ, edge{id: id, count: count})
	}
	n.total += uint64(count)
}

// Chain is a Markov chain of fixed order with its interned vocabulary and
// opaque metadata string. Mutated only by Feed and SetMetadata; safe for
// concurrent readers once training is done.
type Chain struct {
	order    int
	metadata string
	dict     *symbolTable
	nodes    map[key]*edgeList
	logger   *slog.Logger
}

// New creates an empty chain of the given order. Metadata is an opaque string
// (conventionally JSON) round-tripped through Save and Load.
func New(order int, metadata string) (*Chain, error) {
	if order < MinOrder || order > MaxOrder {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrUnsupportedOrder, order, MinOrder, MaxOrder)
	}
	return &Chain{
		order:    order,
		metadata: metadata,
		dict:     newSymbolTable(),
		nodes:    make(map[key]*edgeList),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Order reports the chain order.
func (c *Chain) Order() int { return c.order }

// Metadata returns the metadata string supplied at construction or loaded
// from disk.
func (c *Chain) Metadata() string { return c.metadata }

// SetMetadata replaces the metadata string.
func (c *Chain) SetMetadata(s string) { c.metadata = s }

// SetLogger enables training diagnostics. Logs are discarded by default.
func (c *Chain) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Feed trains the chain on one sentence. The text is split on ASCII
// whitespace; empty input is a no-op. A sentence of K tokens adds exactly
// K+1 edges: one per token plus the terminal boundary edge.
func (c *Chain) Feed(text string) {
	tokens := splitTokens(text)
	if len(tokens) == 0 {
		return
	}
	var k key
	for _, tok := range tokens {
		id := c.dict.intern(tok)
		c.addEdge(k, id)
		k.shift(c.order, id)
	}
	c.addEdge(k, boundary)
}

func (c *Chain) addEdge(k key, next symbol) {
	n, ok := c.nodes[k]
	if !ok {
		n = newEdgeList()
		c.nodes[k] = n
	}
	n.add(next, 1)
}

// Edge is one successor of a context as seen by callers: either a token or
// the end-of-sentence marker, with its observation count.
type Edge struct {
	Token string `json:"token,omitempty"`
	End   bool   `json:"end,omitempty"`
	Count uint32 `json:"count"`
}

// Edges enumerates the successors recorded for a context of up to order
// tokens, in stored (insertion) order. A context containing unknown tokens,
// or one never observed, yields a nil slice.
func (c *Chain) Edges(context []string) ([]Edge, error) {
	if len(context) > c.order {
		return nil, fmt.Errorf("%w: %d tokens for order %d", ErrSeedTooLong, len(context), c.order)
	}
	var k key
	for _, tok := range context {
		id, ok := c.dict.lookup(tok)
		if !ok {
			return nil, nil
		}
		k.shift(c.order, id)
	}
	n, ok := c.nodes[k]
	if !ok {
		return nil, nil
	}
	out := make([]Edge, 0, len(n.succ))
	for _, e := range n.succ {
		if e.id == boundary {
			out = append(out, Edge{End: true, Count: e.count})
		} else {
			out = append(out, Edge{Token: c.dict.resolve(e.id), Count: e.count})
		}
	}
	return out, nil
}

// Stats summarizes the size of a chain.
type Stats struct {
	Vocabulary int    `json:"vocabulary"`
	Nodes      int    `json:"nodes"`
	Links      int    `json:"links"`
	Samples    uint64 `json:"samples"`
}

// Stats reports vocabulary size, node count, distinct (key, successor) link
// count, and the total number of training observations.
func (c *Chain) Stats() Stats {
	s := Stats{Vocabulary: c.dict.len(), Nodes: len(c.nodes)}
	for _, n := range c.nodes {
		s.Links += len(n.succ)
		s.Samples += n.total
	}
	return s
}

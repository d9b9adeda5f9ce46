package markov

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Binary model file layout, all little-endian, no padding:
//
//	magic "MCHN" (4 bytes)
//	format version (u16)
//	order (u8), reserved (u8, zero)
//	metadata: u32 length + bytes
//	symbol table: u32 count, then per symbol u32 length + bytes, in id order
//	nodes: u32 count, then per node: order u32 key slots, u32 edge count,
//	       then per edge u32 successor + u32 count
//
// Id 0 never appears in the symbol table; in key slots and successors it
// encodes the boundary marker.
const (
	formatMagic   = "MCHN"
	formatVersion = 1
)

var (
	// ErrBadMagic means the input does not start with the model file tag.
	ErrBadMagic = errors.New("bad magic")
	// ErrUnsupportedVersion means the format version is unknown to this build.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrTruncated means the input ended before the declared contents did.
	ErrTruncated = errors.New("truncated model file")
	// ErrDanglingSymbol means a key slot or successor references an id
	// beyond the declared symbol table.
	ErrDanglingSymbol = errors.New("dangling symbol id")
	// ErrDuplicateSymbol means the symbol table declares the same string twice.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrZeroCount means an edge carries a zero count.
	ErrZeroCount = errors.New("zero edge count")
	// ErrDuplicateKey means the node list declares the same key, or a node
	// the same successor, twice.
	ErrDuplicateKey = errors.New("duplicate key")
)

var endian = binary.LittleEndian

// Save serializes the chain to w in a single pass. Any write failure aborts
// the operation; w is neither flushed nor closed, and callers should discard
// partial output on error.
func (c *Chain) Save(w io.Writer) error {
	buf := bufio.NewWriter(w)
	bw := &stickyWriter{w: buf}

	bw.bytes([]byte(formatMagic))
	bw.u16(formatVersion)
	bw.u8(uint8(c.order))
	bw.u8(0)
	bw.blob([]byte(c.metadata))

	bw.u32(uint32(c.dict.len()))
	for _, word := range c.dict.words {
		bw.blob([]byte(word))
	}

	bw.u32(uint32(len(c.nodes)))
	for k, n := range c.nodes {
		for i := 0; i < c.order; i++ {
			bw.u32(k[i])
		}
		bw.u32(uint32(len(n.succ)))
		for _, e := range n.succ {
			bw.u32(e.id)
			bw.u32(e.count)
		}
	}

	if bw.err != nil {
		return fmt.Errorf("save chain: %w", bw.err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("save chain: %w", err)
	}
	return nil
}

// Load reads a chain of any supported order from r. Reads from r are
// buffered, so bytes past the end of the model may be consumed; r is not
// closed.
func Load(r io.Reader) (*Chain, error) {
	br := &reader{r: bufio.NewReader(r)}

	var magic [4]byte
	br.exactly(magic[:])
	if br.err != nil {
		return nil, br.err
	}
	if string(magic[:]) != formatMagic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, magic[:])
	}
	version := br.u16()
	if br.err != nil {
		return nil, br.err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	order := int(br.u8())
	br.u8() // reserved, ignored
	if br.err != nil {
		return nil, br.err
	}
	if order < MinOrder || order > MaxOrder {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedOrder, order)
	}

	c, err := New(order, string(br.blob()))
	if err != nil {
		return nil, err
	}
	if br.err != nil {
		return nil, br.err
	}

	symbolCount := br.u32()
	for i := uint32(0); i < symbolCount && br.err == nil; i++ {
		word := string(br.blob())
		if br.err != nil {
			break
		}
		if _, ok := c.dict.lookup(word); ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, word)
		}
		c.dict.intern(word)
	}
	if br.err != nil {
		return nil, br.err
	}

	nodeCount := br.u32()
	if br.err != nil {
		return nil, br.err
	}
	for i := uint32(0); i < nodeCount; i++ {
		var k key
		for slot := 0; slot < order; slot++ {
			id := br.u32()
			if br.err != nil {
				return nil, br.err
			}
			if id > symbolCount {
				return nil, fmt.Errorf("%w: key slot %d of node %d", ErrDanglingSymbol, slot, i)
			}
			k[slot] = id
		}
		if _, ok := c.nodes[k]; ok {
			return nil, fmt.Errorf("%w: node %d", ErrDuplicateKey, i)
		}
		n := newEdgeList()
		edgeCount := br.u32()
		if br.err == nil && edgeCount == 0 {
			// A node with no edges can never be sampled and violates the
			// edge-total invariant.
			return nil, fmt.Errorf("%w: node %d has no edges", ErrZeroCount, i)
		}
		for e := uint32(0); e < edgeCount; e++ {
			id := br.u32()
			count := br.u32()
			if br.err != nil {
				return nil, br.err
			}
			if id > symbolCount {
				return nil, fmt.Errorf("%w: successor in node %d", ErrDanglingSymbol, i)
			}
			if count == 0 {
				return nil, fmt.Errorf("%w: successor %d in node %d", ErrZeroCount, id, i)
			}
			if _, ok := n.index[id]; ok {
				return nil, fmt.Errorf("%w: successor %d repeated in node %d", ErrDuplicateKey, id, i)
			}
			n.add(id, count)
		}
		if br.err != nil {
			return nil, br.err
		}
		c.nodes[k] = n
	}
	return c, nil
}

// Model is the order-agnostic handle returned by LoadAny. It exposes only
// the operations that do not depend on knowing the order up front; seeds
// longer than the hidden order surface as ErrSeedTooLong at call time.
type Model interface {
	Order() int
	Metadata() string
	Generate(seed []string, rng Rand) ([]string, error)
	SampleBest(seed []string, rng Rand, count int) ([]string, error)
	Edges(context []string) ([]Edge, error)
}

// LoadAny reads a model of whatever order the header declares and returns it
// behind the Model interface.
func LoadAny(r io.Reader) (Model, error) {
	c, err := Load(r)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// stickyWriter writes fixed-width little-endian fields, retaining the first
// error so each field site stays one line.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (sw *stickyWriter) bytes(b []byte) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.w.Write(b)
}

func (sw *stickyWriter) u8(v uint8) { sw.bytes([]byte{v}) }

func (sw *stickyWriter) u16(v uint16) {
	var b [2]byte
	endian.PutUint16(b[:], v)
	sw.bytes(b[:])
}

func (sw *stickyWriter) u32(v uint32) {
	var b [4]byte
	endian.PutUint32(b[:], v)
	sw.bytes(b[:])
}

func (sw *stickyWriter) blob(b []byte) {
	sw.u32(uint32(len(b)))
	sw.bytes(b)
}

// reader mirrors stickyWriter for decoding; short reads surface as
// ErrTruncated.
type reader struct {
	r   io.Reader
	err error
}

func (br *reader) exactly(b []byte) {
	if br.err != nil {
		return
	}
	if _, err := io.ReadFull(br.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			br.err = ErrTruncated
			return
		}
		br.err = err
	}
}

func (br *reader) u8() uint8 {
	var b [1]byte
	br.exactly(b[:])
	return b[0]
}

func (br *reader) u16() uint16 {
	var b [2]byte
	br.exactly(b[:])
	return endian.Uint16(b[:])
}

func (br *reader) u32() uint32 {
	var b [4]byte
	br.exactly(b[:])
	return endian.Uint32(b[:])
}

func (br *reader) blob() []byte {
	n := br.u32()
	if br.err != nil {
		return nil
	}
	b := make([]byte, n)
	br.exactly(b)
	if br.err != nil {
		return nil
	}
	return b
}

package markov

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func saveToBytes(t *testing.T, c *Chain) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Save(&buf); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	return buf.Bytes()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	orig, err := New(3, `{"channels":"testchan","order":3}`)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for _, s := range []string{
		"one fish two fish",
		"red fish blue fish",
		"this one has a little star",
		"this one has a little car",
	} {
		orig.Feed(s)
	}

	loaded, err := Load(bytes.NewReader(saveToBytes(t, orig)))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if loaded.Order() != orig.Order() {
		t.Errorf("order = %d, want %d", loaded.Order(), orig.Order())
	}
	if loaded.Metadata() != orig.Metadata() {
		t.Errorf("metadata = %q, want %q", loaded.Metadata(), orig.Metadata())
	}
	if diff := cmp.Diff(orig.dict, loaded.dict, cmp.AllowUnexported(symbolTable{})); diff != "" {
		t.Errorf("symbol table mismatch (-orig +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(orig.nodes, loaded.nodes, cmp.AllowUnexported(edgeList{}, edge{})); diff != "" {
		t.Errorf("graph mismatch (-orig +loaded):\n%s", diff)
	}

	// Identical RNG streams must walk both chains identically.
	a, err := orig.Generate([]string{"this"}, &stepRand{})
	if err != nil {
		t.Fatalf("Generate(orig) error: %v", err)
	}
	b, err := loaded.Generate([]string{"this"}, &stepRand{})
	if err != nil {
		t.Fatalf("Generate(loaded) error: %v", err)
	}
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Errorf("generation diverged after round trip: %v vs %v", a, b)
	}
}

func TestRoundTripEmptyChain(t *testing.T) {
	orig, err := New(1, "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	loaded, err := Load(bytes.NewReader(saveToBytes(t, orig)))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	out, err := loaded.Generate(nil, zeroRand{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("empty chain generated %v", out)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := saveToBytes(t, mustChain(t, 2, "a b"))
	data[0] = 'X'
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Load error = %v, want ErrBadMagic", err)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	data := saveToBytes(t, mustChain(t, 2, "a b"))
	binary.LittleEndian.PutUint16(data[4:6], 9)
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Load error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestLoadRejectsBadOrderByte(t *testing.T) {
	data := saveToBytes(t, mustChain(t, 2, "a b"))
	for _, order := range []byte{0, 7, 255} {
		data[6] = order
		if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrUnsupportedOrder) {
			t.Errorf("order byte %d: Load error = %v, want ErrUnsupportedOrder", order, err)
		}
	}
}

func TestLoadTruncatedAnywhere(t *testing.T) {
	data := saveToBytes(t, mustChain(t, 2, "the quick brown fox", "the lazy dog"))
	for n := 0; n < len(data); n++ {
		if _, err := Load(bytes.NewReader(data[:n])); !errors.Is(err, ErrTruncated) {
			t.Fatalf("prefix of %d/%d bytes: Load error = %v, want ErrTruncated", n, len(data), err)
		}
	}
}

// writeFile hand-assembles a model file for malformed-input cases.
func writeFile(order uint8, symbols []string, raw []uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString(formatMagic)
	_ = binary.Write(&buf, endian, uint16(formatVersion))
	buf.WriteByte(order)
	buf.WriteByte(0)
	_ = binary.Write(&buf, endian, uint32(0)) // empty metadata
	_ = binary.Write(&buf, endian, uint32(len(symbols)))
	for _, s := range symbols {
		_ = binary.Write(&buf, endian, uint32(len(s)))
		buf.WriteString(s)
	}
	for _, v := range raw {
		_ = binary.Write(&buf, endian, v)
	}
	return buf.Bytes()
}

func TestLoadRejectsDanglingSymbol(t *testing.T) {
	// One node (key "a", boundary), one edge pointing at nonexistent id 5.
	data := writeFile(2, []string{"a"}, []uint32{
		1,    // node count
		1, 0, // key slots
		1,    // edge count
		5, 1, // successor 5 (undeclared), count 1
	})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrDanglingSymbol) {
		t.Errorf("Load error = %v, want ErrDanglingSymbol", err)
	}

	// Same for a key slot.
	data = writeFile(2, []string{"a"}, []uint32{
		1,
		9, 0,
		1,
		1, 1,
	})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrDanglingSymbol) {
		t.Errorf("Load error = %v, want ErrDanglingSymbol", err)
	}
}

func TestLoadRejectsZeroCount(t *testing.T) {
	data := writeFile(1, []string{"a"}, []uint32{
		1,
		1,
		1,
		0, 0, // boundary successor with count 0
	})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrZeroCount) {
		t.Errorf("Load error = %v, want ErrZeroCount", err)
	}
}

func TestLoadRejectsEmptyNode(t *testing.T) {
	data := writeFile(1, []string{"a"}, []uint32{
		1,
		1, // key (a)
		0, // zero edges
	})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrZeroCount) {
		t.Errorf("Load error = %v, want ErrZeroCount", err)
	}
}

func TestLoadRejectsDuplicateSymbol(t *testing.T) {
	data := writeFile(1, []string{"a", "a"}, []uint32{0})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("Load error = %v, want ErrDuplicateSymbol", err)
	}
}

func TestLoadRejectsDuplicateKey(t *testing.T) {
	data := writeFile(1, []string{"a"}, []uint32{
		2,
		1, 1, 0, 1, // node (a): boundary x1
		1, 1, 0, 1, // node (a) again
	})
	if _, err := Load(bytes.NewReader(data)); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Load error = %v, want ErrDuplicateKey", err)
	}
}

func TestLoadAnyHidesOrder(t *testing.T) {
	for _, order := range []int{1, 3} {
		c, err := New(order, "")
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		c.Feed("a b c d")

		m, err := LoadAny(bytes.NewReader(saveToBytes(t, c)))
		if err != nil {
			t.Fatalf("LoadAny error: %v", err)
		}
		if m.Order() != order {
			t.Errorf("Order() = %d, want %d", m.Order(), order)
		}

		long := make([]string, order+1)
		for i := range long {
			long[i] = "a"
		}
		if _, err := m.Generate(long, zeroRand{}); !errors.Is(err, ErrSeedTooLong) {
			t.Errorf("order %d: Generate with %d-token seed error = %v, want ErrSeedTooLong", order, len(long), err)
		}
	}
}

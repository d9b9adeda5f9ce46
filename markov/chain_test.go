package markov

import (
	"errors"
	"testing"
)

func mustChain(t *testing.T, order int, sentences ...string) *Chain {
	t.Helper()
	c, err := New(order, "")
	if err != nil {
		t.Fatalf("New(%d) error: %v", order, err)
	}
	for _, s := range sentences {
		c.Feed(s)
	}
	return c
}

func TestNewRejectsBadOrder(t *testing.T) {
	for _, order := range []int{-1, 0, 7, 100} {
		if _, err := New(order, ""); !errors.Is(err, ErrUnsupportedOrder) {
			t.Errorf("New(%d) error = %v, want ErrUnsupportedOrder", order, err)
		}
	}
	for order := MinOrder; order <= MaxOrder; order++ {
		if _, err := New(order, ""); err != nil {
			t.Errorf("New(%d) error = %v, want nil", order, err)
		}
	}
}

func TestFeedOrderTwo(t *testing.T) {
	c := mustChain(t, 2, "the quick brown fox")

	if got := c.Stats().Vocabulary; got != 4 {
		t.Fatalf("vocabulary = %d, want 4", got)
	}

	cases := []struct {
		context []string
		want    Edge
	}{
		{nil, Edge{Token: "the", Count: 1}},
		{[]string{"the"}, Edge{Token: "quick", Count: 1}},
		{[]string{"the", "quick"}, Edge{Token: "brown", Count: 1}},
		{[]string{"quick", "brown"}, Edge{Token: "fox", Count: 1}},
		{[]string{"brown", "fox"}, Edge{End: true, Count: 1}},
	}
	for _, tc := range cases {
		edges, err := c.Edges(tc.context)
		if err != nil {
			t.Fatalf("Edges(%v) error: %v", tc.context, err)
		}
		if len(edges) != 1 || edges[0] != tc.want {
			t.Errorf("Edges(%v) = %v, want [%v]", tc.context, edges, tc.want)
		}
	}
}

func TestFeedEdgeCountInvariant(t *testing.T) {
	sentences := []string{
		"one fish two fish",
		"red fish blue fish",
		"so long and thanks for all the fish",
	}
	tokens := 0
	for _, s := range sentences {
		tokens += len(splitTokens(s))
	}

	for order := MinOrder; order <= MaxOrder; order++ {
		c := mustChain(t, order, sentences...)
		want := uint64(tokens + len(sentences))
		if got := c.Stats().Samples; got != want {
			t.Errorf("order %d: samples = %d, want %d", order, got, want)
		}
	}
}

func TestFeedEmptyIsNoOp(t *testing.T) {
	c := mustChain(t, 2, "", "   ", "\t\n")
	if got := c.Stats(); got.Nodes != 0 || got.Vocabulary != 0 {
		t.Errorf("stats after empty feeds = %+v, want zero", got)
	}
}

func TestFeedCollapsesWhitespace(t *testing.T) {
	c := mustChain(t, 1, "a  b\t\tc\r\n")
	if got := c.Stats().Vocabulary; got != 3 {
		t.Errorf("vocabulary = %d, want 3", got)
	}
	// 3 tokens + 1 terminator
	if got := c.Stats().Samples; got != 4 {
		t.Errorf("samples = %d, want 4", got)
	}
}

func TestEdgesContextTooLong(t *testing.T) {
	c := mustChain(t, 2, "a b c")
	if _, err := c.Edges([]string{"a", "b", "c"}); !errors.Is(err, ErrSeedTooLong) {
		t.Errorf("Edges with long context error = %v, want ErrSeedTooLong", err)
	}
}

func TestEdgesUnknownContext(t *testing.T) {
	c := mustChain(t, 2, "a b c")
	edges, err := c.Edges([]string{"nope"})
	if err != nil || edges != nil {
		t.Errorf("Edges(unknown) = %v, %v, want nil, nil", edges, err)
	}
}

func TestEdgesRepeatedSuccessorAccumulates(t *testing.T) {
	c := mustChain(t, 1, "a b", "a b", "a c")
	edges, err := c.Edges([]string{"a"})
	if err != nil {
		t.Fatalf("Edges error: %v", err)
	}
	want := []Edge{{Token: "b", Count: 2}, {Token: "c", Count: 1}}
	if len(edges) != len(want) {
		t.Fatalf("Edges = %v, want %v", edges, want)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}
}

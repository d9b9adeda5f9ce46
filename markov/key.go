package markov

// key is the sliding window of the previous N token ids. Only the first
// order slots are used; the rest stay zero, so full-array equality and
// hashing remain correct for every order. Slot value 0 is the boundary
// marker ("no token here yet").
type key [MaxOrder]symbol

// shift drops the oldest slot and appends next, the only key mutation.
func (k *key) shift(order int, next symbol) {
	copy(k[:order-1], k[1:order])
	k[order-1] = next
}

// splitTokens splits s on ASCII whitespace, never yielding empty tokens.
func splitTokens(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if isASCIISpace(s[i]) {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

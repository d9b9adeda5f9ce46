package markov

// symbol is a dense id for an interned token string. The zero id is reserved
// for the boundary marker and never names a real token.
type symbol = uint32

const boundary symbol = 0

// symbolTable assigns dense ids to token strings, starting from 1 in
// insertion order. Ids are stable for the lifetime of the chain; the codec
// relies on that when writing the table in id order.
type symbolTable struct {
	ids   map[string]symbol
	words []string
}

func newSymbolTable() *symbolTable {
	return &symbolTable{ids: make(map[string]symbol)}
}

// intern returns the id for tok, assigning the next free id on first sight.
func (t *symbolTable) intern(tok string) symbol {
	if id, ok := t.ids[tok]; ok {
		return id
	}
	t.words = append(t.words, tok)
	id := symbol(len(t.words))
	t.ids[tok] = id
	return id
}

// lookup returns the id for tok without inserting.
func (t *symbolTable) lookup(tok string) (symbol, bool) {
	id, ok := t.ids[tok]
	return id, ok
}

// resolve maps an assigned id back to its token. Callers must never pass the
// boundary id or an id that was not issued by intern.
func (t *symbolTable) resolve(id symbol) string {
	return t.words[id-1]
}

func (t *symbolTable) len() int {
	return len(t.words)
}

/*
Package markov implements a word-level Markov chain of statically selected
order (1 through 6), trained from streaming text and sampled with a
caller-supplied random source.

A Chain owns a symbol table interning every distinct token, a graph keyed by
the previous N tokens, and per-state successor frequencies. Chains serialize
to a compact little-endian binary format; LoadAny reads a model of any
supported order and returns it behind the Model interface, which hides the
order from callers.

The chain is single-writer: Feed must not be called concurrently, but a chain
that is no longer being trained is safe for concurrent readers.
*/
package markov

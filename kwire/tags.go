package kwire

// Tagged fields are KIP-482's extension mechanism for flexible versions:
// after a flexible struct's known fields, a count of (tag, length, bytes)
// triples follows, letting newer clients/brokers add optional fields
// without bumping the schema version. Per this library's own decision
// (see DESIGN.md's Open Questions), encoding never emits any tags — every
// flexible struct's tag section is just the empty-count terminator byte
// 0x00 — and decoding skips whatever tags a broker sends rather than
// interpreting them.

// EmptyTags writes the empty tagged-field terminator.
func (w *Writer) EmptyTags() {
	w.Uvarint(0)
}

// SkipTags consumes and discards a tagged-field section, however many
// entries it contains.
func (r *Reader) SkipTags() {
	n := r.Uvarint()
	for i := uint64(0); i < n; i++ {
		if r.err != nil {
			return
		}
		r.Uvarint() // tag
		l := r.Uvarint()
		r.take(int(l))
	}
}

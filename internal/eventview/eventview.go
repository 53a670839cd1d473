// Package eventview defines the read-only shape a relay event presents to
// the filtering core: identity, timing, content, and its tag table.
package eventview

import "unicode/utf8"

// TagTable maps a single-character tag name to its ordered value vectors,
// e.g. tag "e" on an event with two e-tags holds [["abc...", "wss://..."], ["def..."]].
type TagTable map[byte][][]string

// Exists reports whether the tag has at least one value vector.
func (t TagTable) Exists(name byte) bool {
	return len(t[name]) > 0
}

// Count returns the number of value vectors recorded under name.
func (t TagTable) Count(name byte) int {
	return len(t[name])
}

// Value returns the first element of the first value vector under name,
// or the empty string if the tag is absent or its first vector is empty.
func (t TagTable) Value(name byte) string {
	vecs := t[name]
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return ""
	}
	return vecs[0][0]
}

// First returns the first element of the first value vector under name
// and whether there was one. Called with 'e', it locates the event a
// repost or reaction refers to.
func (t TagTable) First(name byte) (string, bool) {
	vecs := t[name]
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return "", false
	}
	return vecs[0][0], true
}

// View is the event shape the filtering core evaluates rules against.
// It is read-only: nothing in the core mutates a View after construction.
type View struct {
	ID        string
	PubkeyHex string
	Npub      string
	Kind      int64
	CreatedAt int64
	Content   string
	Tags      TagTable

	// ReferencedCreatedAt is populated by the session from the reference
	// cache lookup (§4.5); Present is false on a cache miss, in which case
	// any comparison against it must evaluate to false rather than error.
	ReferencedCreatedAt int64
	ReferencedPresent   bool
}

// ContentLength is the count of Unicode scalar values in Content, not bytes.
func (v View) ContentLength() int {
	return utf8.RuneCountInString(v.Content)
}

// Package npub wraps the bech32 author-key codec used throughout the
// core: the DSL compiler validates npub literals with it, and the
// session layer uses it to derive an event's npub from its hex pubkey.
package npub

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr/nip19"
)

// FromHex encodes a 32-byte hex public key as its bech32 npub form.
func FromHex(pubkeyHex string) (string, error) {
	return nip19.EncodePublicKey(pubkeyHex)
}

// Validate reports whether s is a syntactically valid, correctly
// prefixed npub literal. Per the open question in SPEC_FULL §9, mixed
// case is rejected rather than normalized: bech32 is lowercase by
// convention, and nip19.Decode itself rejects mixed-case strings.
func Validate(s string) error {
	prefix, _, err := nip19.Decode(s)
	if err != nil {
		return err
	}
	if prefix != "npub" {
		return fmt.Errorf("not an npub: prefix %q", prefix)
	}
	return nil
}

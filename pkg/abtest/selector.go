package abtest

import (
	"crypto/sha256"
	"encoding/binary"
)

// Variant labels attached to redirect decisions and click events.
const (
	VariantA = "A"
	VariantB = "B"
)

// DefaultSplit is the percentage of traffic assigned to variant A when an
// experiment does not specify its own split.
const DefaultSplit = 50

// Assign deterministically buckets a visitor into variant A or B.
// It hashes visitorKey and experimentID together (SHA256), converts the
// first 8 bytes of the digest to a uint64, and compares the value mod 100
// against the split percentage. Same inputs always produce the same
// variant, no per-visitor state is kept, and distinct experiment IDs
// re-shuffle the population so assignments are not correlated across
// experiments.
//
// The visitor key is derived from the requester's IP, so visitors behind
// shared NAT collapse onto one variant. That is an accepted tradeoff for
// keeping the engine stateless.
func Assign(visitorKey, experimentID string, split int) string {
	if split <= 0 || split > 100 {
		split = DefaultSplit
	}

	h := sha256.New()
	h.Write([]byte(visitorKey))
	h.Write([]byte{':'})
	h.Write([]byte(experimentID))
	digest := h.Sum(nil)

	bucket := binary.BigEndian.Uint64(digest[:8]) % 100
	if bucket < uint64(split) {
		return VariantA
	}
	return VariantB
}

// Select assigns with the default 50/50 split.
func Select(visitorKey, experimentID string) string {
	return Assign(visitorKey, experimentID, DefaultSplit)
}

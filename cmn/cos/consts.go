package cos

import "strings"

// byte-size constants, used throughout ring/wire/udp sizing (MTU
// defaults, fragment buffers, ring cell sizing).
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// SizeofI64 is the on-wire width of an int64/u64 field (packet codec,
// fragment header).
const SizeofI64 = 8

// JoinWords joins URL-path-like segments with '/', skipping empties.
func JoinWords(words ...string) string {
	parts := words[:0]
	for _, w := range words {
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "/")
}

// Plural returns "s" when n != 1, for log messages ("N message(s)").
func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

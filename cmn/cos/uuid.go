// Package cos provides common low-level types, error kinds, and topic
// utilities shared by ring, link, hub, wire, udp, and router.
package cos

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/teris-io/shortid"
)

const (
	uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"
)

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
	seed    atomic.Uint64
)

func initSID() {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed.Add(1))
}

// GenUUID generates a short, globally-unique-enough ID used to make
// housekeeper job names and test topic names unique.
func GenUUID() string {
	sidOnce.Do(initSID)
	return sid.MustGenerate()
}

// SanitizeTopic converts a topic name into the filesystem-safe form
// used to derive a shared-memory
// region name: lowercased, path separators and anything outside
// [a-z0-9-_.] replaced with '_', and bounded in length.
func SanitizeTopic(topic string) string {
	const maxLen = 96
	var b strings.Builder
	b.Grow(len(topic))
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	if s == "" {
		s = "_"
	}
	return s
}

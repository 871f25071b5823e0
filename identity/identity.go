// Package identity derives the deterministic key used to deduplicate
// messages across polling cycles.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/kashbor/bankmail-to-sheets/model"
)

const (
	uidPrefix  = "UID:"
	hashPrefix = "HASH:"

	// hashBodyChars bounds how much body text feeds the fallback hash.
	// Two distinct messages identical in date, from, subject and their
	// first 40 body characters collide; that risk is accepted.
	hashBodyChars = 40
)

// StableID returns a non-empty identifier for the message, trying the most
// authoritative tier first:
//
//  1. the protocol Message-Id, stable across retrieval sessions
//  2. the mailbox-assigned UID, stable only within one mailbox
//  3. a tagged content hash, so every message gets some identifier
//
// The UID and hash tiers are tagged so the three namespaces never overlap.
func StableID(msg model.RawMessage) string {
	if id := strings.TrimSpace(msg.MessageID); id != "" {
		return id
	}
	if uid := strings.TrimSpace(msg.UID); uid != "" {
		return uidPrefix + uid
	}
	return hashPrefix + contentHash(msg.Date, msg.From, msg.Subject, msg.Body)
}

func contentHash(date, from, subject, body string) string {
	runes := []rune(body)
	if len(runes) > hashBodyChars {
		runes = runes[:hashBodyChars]
	}
	sig := strings.Join([]string{date, from, subject, string(runes)}, "|")
	sum := sha1.Sum([]byte(sig))
	return hex.EncodeToString(sum[:])
}

// Set is a collection of stable ids already recorded by the sink.
type Set map[string]struct{}

// NewSet builds a Set from a list of ids, skipping empty entries.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains reports whether id was already recorded. Pure membership test;
// the set is never mutated here.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Add records id in the set. Empty ids are ignored, matching NewSet.
func (s Set) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

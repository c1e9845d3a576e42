package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator drops conversations whose message content is identical,
// which happens when the same chat is saved more than once.
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate keeps the first conversation of each content hash
func (d *Deduplicator) Deduplicate(conversations []*Conversation) []*Conversation {
	seen := make(map[string]bool)
	var unique []*Conversation

	for _, conv := range conversations {
		hash := d.hashContent(conv)
		if !seen[hash] {
			seen[hash] = true
			unique = append(unique, conv)
		}
	}

	return unique
}

// hashContent hashes role and content of every message in order
func (d *Deduplicator) hashContent(conv *Conversation) string {
	h := sha256.New()
	for _, msg := range conv.Messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

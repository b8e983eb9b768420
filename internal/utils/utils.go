package utils

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	idMu  sync.Mutex
	idRng = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateRoomCode returns a 6-character code from an alphabet with the
// ambiguous characters (0/O, 1/I) removed.
func GenerateRoomCode() string {
	idMu.Lock()
	defer idMu.Unlock()

	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteByte(roomCodeAlphabet[idRng.Intn(len(roomCodeAlphabet))])
	}
	return sb.String()
}

// Topic is one playable (category, keyword) pair.
type Topic struct {
	Category string
	Keyword  string
}

// RandomTopic picks a pair from the built-in table.
func RandomTopic() (category, keyword string) {
	idMu.Lock()
	t := builtinTopics[idRng.Intn(len(builtinTopics))]
	idMu.Unlock()
	return t.Category, t.Keyword
}

// TopicPicker returns a picker over a custom table, falling back to the
// built-in one when the table is empty.
func TopicPicker(topics []Topic) func() (category, keyword string) {
	if len(topics) == 0 {
		return RandomTopic
	}
	return func() (string, string) {
		idMu.Lock()
		t := topics[idRng.Intn(len(topics))]
		idMu.Unlock()
		return t.Category, t.Keyword
	}
}

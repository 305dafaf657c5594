package internal

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUID returns a random (v4) UUID string. Used for users, catalog
// entries and refresh token ids.
func NewUUID() string {
	return uuid.NewString()
}

var (
	ulidMu      sync.Mutex
	ulidEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexicographically time-ordered id. Used for quiz
// sessions and attempt records so their primary keys sort by creation.
func NewULID() string {
	return NewULIDAt(time.Now())
}

// NewULIDAt is NewULID with an explicit timestamp. Ids generated within
// the same millisecond are strictly increasing.
func NewULIDAt(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

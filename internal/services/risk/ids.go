package riskservice

import (
	cryptoRand "crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	alertPrefix      = "alert_"
	mitigationPrefix = "auto_adjust_"
)

var (
	idMu    sync.Mutex
	entropy io.Reader = ulid.Monotonic(cryptoRand.Reader, 0)
)

// newAlertID returns a time-ordered unique id.
// Monotonic entropy keeps ids issued in the same millisecond sortable.
func newAlertID(prefix string, t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		// clock moved backwards within the monotonic window
		id = ulid.MustNew(ulid.Now(), cryptoRand.Reader)
	}
	return prefix + id.String()
}

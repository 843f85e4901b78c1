package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"
)

var testSequence atomic.Uint64

func init() {
	testSequence.Store(uint64(time.Now().UnixNano() % 1000000))
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return testSequence.Add(1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("pos") -> "pos_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

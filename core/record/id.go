package record

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var tempSeq uint64

// NewTempID returns a temporary identifier for an entity not yet stored remotely.
// Server identifiers are UUIDs and always contain "-"; temporary ones never do.
func NewTempID() string {
	seq := atomic.AddUint64(&tempSeq, 1)
	return "tmp" + strconv.FormatInt(time.Now().UnixNano(), 10) + strconv.FormatUint(seq, 10)
}

// IsTempID reports whether id was not issued by the remote store.
func IsTempID(id string) bool {
	return !strings.Contains(id, "-")
}

package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a prefixed identifier whose suffix is a UUIDv7, so ids sort by
// creation time within a prefix.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), uuid.NewString())
	}
	return prefix + "-" + id.String()
}

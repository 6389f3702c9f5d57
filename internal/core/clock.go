package core

import (
	"time"

	"github.com/google/uuid"
)

// NowNS returns the current wall-clock time as nanoseconds, matching the
// Timestamp type's unspecified-epoch contract.
func NowNS() Timestamp { return Timestamp(time.Now().UnixNano()) }

// NewClientOrderID generates a unique client-assigned order identifier.
func NewClientOrderID() string { return uuid.NewString() }

// Package id provides request-scoped identifiers used to name temp files.
package id

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique request ID.
// Format: req-<timestamp>-<uuid>
// Example: req-1701432000-0b9f2c1e-7d1a-4c53-9a57-6a0de5f2c1b4
//
// The timestamp only helps when reading a temp directory listing;
// uniqueness comes from the random UUID.
func Generate() string {
	return fmt.Sprintf("req-%d-%s", time.Now().Unix(), uuid.NewString())
}

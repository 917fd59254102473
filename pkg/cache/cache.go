// Package cache stores packed placements between runs.
//
// Packing is deterministic, so the plan for a given catalog and settings
// never changes. The pipeline keys each accepted plan by a digest of the
// catalog's names, dimensions and pixels plus the packing settings, and on
// a hit skips estimation and shelf packing entirely. Only placements are
// cached; pixels always come from the freshly loaded images.
//
// Three backends implement [Cache]:
//   - [FileCache]: sharded JSON files, the CLI default
//   - [RedisCache]: a shared cache for build farms
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// TTLPlan is how long a packed plan stays cached.
const TTLPlan = 30 * 24 * time.Hour

// planKeyVersion is bumped whenever the cached plan encoding changes.
const planKeyVersion = 1

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// PlanKey returns the key for a plan packed from the catalog with the
	// given digest under opts.
	PlanKey(catalogDigest string, opts PlanKeyOpts) string
}

// PlanKeyOpts are the settings that influence placement.
type PlanKeyOpts struct {
	MaxWidth   int  `json:"max_width"`
	MaxHeight  int  `json:"max_height"`
	Padding    int  `json:"padding"`
	PowerOfTwo bool `json:"power_of_two"`
}

// DefaultKeyer produces unscoped keys of the form "plan:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PlanKey implements [Keyer].
func (DefaultKeyer) PlanKey(catalogDigest string, opts PlanKeyOpts) string {
	return hashKey("plan", planKeyVersion, catalogDigest, opts)
}

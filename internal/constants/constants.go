// Package constants holds default tuning values for the consistency shim.
package constants

import "time"

// Default configuration values, used by DefaultConfig. New does not
// substitute them for zero-valued Config fields.
const (
	// DefaultBlockSize is the block size assumed when none is configured.
	DefaultBlockSize = 4096

	// DefaultCacheSize is the maximum number of simultaneously tracked
	// blocks when none is configured.
	DefaultCacheSize = 1024

	// DefaultCacheTime is how long a WRITTEN entry remains cached before
	// it is scrubbed back to CLEAN.
	DefaultCacheTime = 10 * time.Second

	// DefaultMinWriteDelay is the minimum delay enforced between the
	// completion of one write and the start of the next write to the
	// same block.
	DefaultMinWriteDelay = 2 * time.Second
)

// FingerprintSize is the width, in bytes, of the MD5 content fingerprint
// cached for each WRITTEN block.
const FingerprintSize = 16

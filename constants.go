package ecshim

import "github.com/ecshim/ecshim/internal/constants"

// Re-exported tuning defaults, used by DefaultConfig.
const (
	DefaultBlockSize      = constants.DefaultBlockSize
	DefaultCacheSize      = constants.DefaultCacheSize
	DefaultCacheTime      = constants.DefaultCacheTime
	DefaultMinWriteDelay  = constants.DefaultMinWriteDelay
	FingerprintSize       = constants.FingerprintSize
)

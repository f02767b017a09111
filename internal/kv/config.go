package kv

import "go.uber.org/zap"

// defaultCompactionThresholdBytes is the stale-byte threshold that triggers
// compaction when Config.CompactionThresholdBytes is left at its zero value.
const defaultCompactionThresholdBytes = 1024 * 1024

// Config holds the options recognized by Engine.Open, per §6.4. The zero
// value is valid except for Directory, which is required.
type Config struct {
	// Directory is the filesystem directory where segments live.
	Directory string
	// CompactionThresholdBytes is the stale-byte threshold that triggers
	// compaction. Zero means use the default (1 MiB).
	CompactionThresholdBytes uint64
	// Logger receives structured lifecycle and error events. A no-op
	// logger is installed when left nil.
	Logger *zap.SugaredLogger
}

func (c Config) withDefaults() Config {
	if c.CompactionThresholdBytes == 0 {
		c.CompactionThresholdBytes = defaultCompactionThresholdBytes
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return c
}

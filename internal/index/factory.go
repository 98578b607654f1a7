package index

import (
	"fmt"

	"datatime/internal/config"
	"datatime/internal/timeline"
)

// NewIndexFromConfig creates an Index implementation based on the index config type.
func NewIndexFromConfig(cfg config.IndexConfig, decode Decoder) (timeline.Index, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryIndex(cfg.MaxEntries), nil
	case "sqlite":
		if decode == nil {
			return nil, fmt.Errorf("sqlite index requires a record decoder")
		}
		return NewSQLiteIndex(cfg.SpillDir, decode, cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Type)
	}
}

package catalog

import (
	"context"
	"fmt"
	"log/slog"
)

// Checker is implemented by catalogs that can report their own health.
type Checker interface {
	Check(ctx context.Context) error
}

// New builds the catalog selected by cfg.Mode.
func New(cfg Config, logger *slog.Logger) (Validator, error) {
	switch cfg.Mode {
	case ModeStatic, "":
		return NewStatic(cfg.Skills, cfg.Tools), nil
	case ModeFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file catalog requires a path")
		}
		return NewFile(cfg.Path, logger), nil
	case ModeRemote:
		return NewRemote(cfg.URL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", cfg.Mode)
	}
}

package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultDesksFile      = "configs/desks.yaml"
	defaultReloadInterval = 30 * time.Second
)

// desksPoller tracks the desks file between ticks. A revision is identified by its
// modification time; once a revision has been handled, valid or not, it is not read again.
type desksPoller struct {
	path     string
	logger   *zerolog.Logger
	onUpdate func(*DesksConfig)

	handled   time.Time
	statFails bool
}

// WatchDesks loads the desks file once, hands it to onUpdate, and then polls it every
// interval until ctx is done. An unreadable or invalid revision is logged and skipped;
// the last good config stays in effect.
func WatchDesks(ctx context.Context, logger *zerolog.Logger, path string, interval time.Duration, onUpdate func(*DesksConfig)) error {
	if path == "" {
		path = defaultDesksFile
	}
	if interval <= 0 {
		interval = defaultReloadInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	cfg, err := LoadDesksConfig(path)
	if err != nil {
		return err
	}
	p := &desksPoller{path: path, logger: logger, onUpdate: onUpdate, handled: info.ModTime()}
	p.apply(cfg)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll()
			}
		}
	}()
	return nil
}

// poll reloads the file when its modification time moved past the last handled revision.
func (p *desksPoller) poll() {
	info, err := os.Stat(p.path)
	if err != nil {
		if !p.statFails {
			p.logger.Warn().Err(err).Str("path", p.path).Msg("Cannot stat desks config, keeping current desks")
		}
		p.statFails = true
		return
	}
	if p.statFails {
		p.logger.Info().Str("path", p.path).Msg("Desks config is readable again")
		p.statFails = false
	}

	mod := info.ModTime()
	if !mod.After(p.handled) {
		return
	}
	p.handled = mod

	cfg, err := LoadDesksConfig(p.path)
	if err != nil {
		p.logger.Error().Err(err).Str("path", p.path).Time("modified", mod).
			Msg("Rejected desks config, keeping current desks")
		return
	}
	p.logger.Info().Str("path", p.path).Int("desks", len(cfg.Desks)).Msg("Desks config reloaded")
	p.apply(cfg)
}

func (p *desksPoller) apply(cfg *DesksConfig) {
	if p.onUpdate != nil {
		p.onUpdate(cfg)
	}
}

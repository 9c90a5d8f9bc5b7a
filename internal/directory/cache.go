// Package directory keeps the last successfully fetched desk list.
package directory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deskbook/internal/metrics"
	"deskbook/internal/models"
)

// Lister fetches the full desk list.
type Lister interface {
	ListDesks(ctx context.Context) ([]models.Desk, error)
}

// Cache holds desks and their booking maps. Refresh replaces the whole list; a failed
// refresh leaves the previous list in place.
type Cache struct {
	lister Lister
	logger *zerolog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	desks       []models.Desk
	index       map[string]int
	refreshedAt time.Time
	lastErr     error
}

func New(lister Lister, logger *zerolog.Logger) *Cache {
	return &Cache{
		lister: lister,
		logger: logger,
		now:    time.Now,
		index:  make(map[string]int),
	}
}

// Refresh fetches the desk list and swaps it in.
func (c *Cache) Refresh(ctx context.Context) error {
	desks, err := c.lister.ListDesks(ctx)
	if err != nil {
		metrics.IncDirectoryRefresh(false)
		c.logger.Error().Err(err).Msg("Error fetching desks")
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	fresh := make([]models.Desk, len(desks))
	index := make(map[string]int, len(desks))
	for i, d := range desks {
		fresh[i] = d.Clone()
	}
	models.SortDesks(fresh)
	for i, d := range fresh {
		index[d.ID.String()] = i
	}

	c.mu.Lock()
	c.desks = fresh
	c.index = index
	c.refreshedAt = c.now()
	c.lastErr = nil
	c.mu.Unlock()

	metrics.IncDirectoryRefresh(true)
	c.logger.Debug().Int("desks", len(fresh)).Msg("Desk directory refreshed")
	return nil
}

// Desks returns a copy of the cached desks in display order.
func (c *Cache) Desks() []models.Desk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Desk, len(c.desks))
	for i, d := range c.desks {
		out[i] = d.Clone()
	}
	return out
}

// Desk looks up a desk by the text of its id.
func (c *Cache) Desk(id string) (models.Desk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return models.Desk{}, false
	}
	return c.desks[i].Clone(), true
}

// BookingFor returns the status of desk id on date. Unknown desks and dates are available.
func (c *Cache) BookingFor(id string, date string) models.BookingStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return models.Available
	}
	return c.desks[i].BookingFor(date)
}

// RefreshedAt is the time of the last successful refresh (zero before the first).
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// LastError is the error of the most recent refresh, nil if it succeeded.
func (c *Cache) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

package dataset

import (
	"context"
	"sync"
	"time"

	"formalizacion/internal/core"

	"golang.org/x/sync/singleflight"
)

// TableLoader produces the cleaned base table.
type TableLoader interface {
	Load(ctx context.Context) (core.Table, error)
}

// Cell holds the base table for the lifetime of the process. The first Get
// loads it; concurrent first calls share that one load. A failed load is
// not remembered, so the next Get tries again.
type Cell struct {
	loader TableLoader
	group  singleflight.Group

	mu       sync.RWMutex
	table    core.Table
	loaded   bool
	loadedAt time.Time
	lastErr  error
}

func NewCell(loader TableLoader) *Cell {
	return &Cell{loader: loader}
}

// Get returns the base table, loading it on first use. The load itself is
// detached from ctx so an abandoned request does not abort it for others.
func (c *Cell) Get(ctx context.Context) (core.Table, error) {
	if t, ok := c.cached(); ok {
		return t, nil
	}

	ch := c.group.DoChan("table", func() (any, error) {
		if t, ok := c.cached(); ok {
			return t, nil
		}
		t, err := c.loader.Load(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		c.lastErr = err
		if err != nil {
			return core.Table{}, err
		}
		c.table, c.loaded, c.loadedAt = t, true, time.Now()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return core.Table{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.Table{}, res.Err
		}
		return res.Val.(core.Table), nil
	}
}

func (c *Cell) cached() (core.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table, c.loaded
}

// Loaded reports whether the table is available.
func (c *Cell) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// LoadedAt returns when the table was loaded, zero if it has not been.
func (c *Cell) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// LastError returns the error of the most recent load attempt.
func (c *Cell) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

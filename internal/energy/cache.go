package energy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/metrics"
	"github.com/lox/campuswatt/internal/models"
)

// DefaultBuilding receives rows from exports that carry no building column.
const DefaultBuilding = "14"

// LoadRecorder persists a log of load attempts. The store implements it.
type LoadRecorder interface {
	RecordCSVLoad(ctx context.Context, load models.CSVLoad) error
}

// Snapshot is what a Load call hands back.
type Snapshot struct {
	Readings     []models.EnergyReading
	Path         string
	ModifiedAt   time.Time
	LoadedAt     time.Time
	FromFallback bool
	Cached       bool
}

// Cache owns the energy CSV: its path, the mtime it was last read at, and the
// parsed rows. It reloads only when the file's mtime advances or a caller
// forces it, and serves the synthetic dataset whenever the file cannot be read.
type Cache struct {
	mu           sync.Mutex
	src          Source
	lastModified time.Time
	loadedAt     time.Time
	rows         []models.EnergyReading
	loaded       bool
	lastFailure  string

	building    string
	loc         *time.Location
	maxElapsed  time.Duration
	logger      *zap.Logger
	recorder    LoadRecorder
	now         func() time.Time
	newSourceFn func(string) (Source, error)
}

type Option func(*Cache)

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Cache) { c.loc = loc }
}

func WithDefaultBuilding(b string) Option {
	return func(c *Cache) { c.building = b }
}

func WithRecorder(r LoadRecorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithRetryWindow bounds how long transient open errors are retried. Zero
// disables retries.
func WithRetryWindow(d time.Duration) Option {
	return func(c *Cache) { c.maxElapsed = d }
}

func NewCache(path string, opts ...Option) (*Cache, error) {
	c := &Cache{
		building:    DefaultBuilding,
		loc:         time.UTC,
		maxElapsed:  2 * time.Second,
		logger:      zap.NewNop(),
		now:         time.Now,
		newSourceFn: NewSource,
	}
	for _, opt := range opts {
		opt(c)
	}
	src, err := c.newSourceFn(path)
	if err != nil {
		return nil, err
	}
	c.src = src
	c.logger = c.logger.Named("csv")
	return c, nil
}

// Path returns the configured CSV location.
func (c *Cache) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src.String()
}

// SetPath points the cache at a new file and forces the next Load to read it.
func (c *Cache) SetPath(path string) error {
	src, err := c.newSourceFn(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.src = src
	c.lastModified = time.Time{}
	c.rows = nil
	c.loaded = false
	c.logger.Info("csv path changed", zap.String("path", src.String()))
	return nil
}

// Load returns the current readings. It never fails: a missing or unreadable
// file yields the synthetic dataset.
func (c *Cache) Load(ctx context.Context, force bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.src.String()
	modified, err := c.src.ModTime(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("csv file not found, using fallback data", zap.String("path", path))
		} else {
			c.logger.Warn("csv stat failed, using fallback data", zap.String("path", path), zap.Error(err))
		}
		return c.fallback(ctx, path, err)
	}

	if !force && !c.lastModified.IsZero() && !modified.After(c.lastModified) && c.loaded {
		metrics.CSVLoadsTotal.WithLabelValues("cached").Inc()
		return Snapshot{
			Readings:   c.rows,
			Path:       path,
			ModifiedAt: c.lastModified,
			LoadedAt:   c.loadedAt,
			Cached:     true,
		}
	}

	c.logger.Info("loading energy data", zap.String("path", path), zap.Bool("force", force))
	res, err := c.read(ctx)
	if err != nil {
		c.logger.Error("csv load failed, using fallback data", zap.String("path", path), zap.Error(err))
		return c.fallback(ctx, path, err)
	}

	c.rows = res.Readings
	c.loaded = true
	c.lastModified = modified
	c.loadedAt = c.now()
	c.lastFailure = ""

	metrics.CSVLoadsTotal.WithLabelValues("loaded").Inc()
	metrics.CSVRows.Set(float64(len(c.rows)))
	metrics.CSVRowsSkipped.Add(float64(res.Skipped))
	c.logger.Info("loaded energy records",
		zap.Int("rows", len(c.rows)),
		zap.Int("skipped", res.Skipped),
		zap.Time("modified", modified))

	c.record(ctx, models.CSVLoad{
		Path:       path,
		ModifiedAt: modified,
		LoadedAt:   c.loadedAt,
		Rows:       len(c.rows),
	})

	return Snapshot{
		Readings:   c.rows,
		Path:       path,
		ModifiedAt: modified,
		LoadedAt:   c.loadedAt,
	}
}

// read opens and parses the source, retrying transient open failures.
func (c *Cache) read(ctx context.Context) (ParseResult, error) {
	var res ParseResult
	operation := func() error {
		rc, err := c.src.Open(ctx)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(fmt.Errorf("open: %w", err))
			}
			return fmt.Errorf("open: %w", err)
		}
		defer rc.Close()

		res, err = Parse(rc, c.building, c.loc)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse: %w", err))
		}
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.maxElapsed > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 100 * time.Millisecond
		exp.MaxElapsedTime = c.maxElapsed
		bo = exp
	}
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return ParseResult{}, err
	}
	return res, nil
}

func (c *Cache) fallback(ctx context.Context, path string, cause error) Snapshot {
	rows := Synthetic(c.loc)
	metrics.CSVLoadsTotal.WithLabelValues("fallback").Inc()
	// Only log a failure to the store when it changes, not on every request.
	if msg := cause.Error(); msg != c.lastFailure {
		c.lastFailure = msg
		c.record(ctx, models.CSVLoad{
			Path:         path,
			LoadedAt:     c.now(),
			Rows:         len(rows),
			UsedFallback: true,
			Error:        msg,
		})
	}
	return Snapshot{
		Readings:     rows,
		Path:         path,
		LoadedAt:     c.now(),
		FromFallback: true,
	}
}

func (c *Cache) record(ctx context.Context, load models.CSVLoad) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordCSVLoad(ctx, load); err != nil {
		c.logger.Warn("record csv load", zap.Error(err))
	}
}

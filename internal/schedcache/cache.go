// Package schedcache keeps derived AHU schedules so repeated dashboard reads
// for the same building and day skip derivation.
package schedcache

import (
	"context"
	"fmt"

	"github.com/lox/campuswatt/internal/models"
)

// Key identifies one derived schedule. Revision is the reference store's
// revision, so any class or unit change misses the cache.
type Key struct {
	Building string
	Date     string
	Revision int64
	Variant  string
}

func (k Key) String() string {
	b := k.Building
	if b == "" {
		b = "all"
	}
	s := fmt.Sprintf("campuswatt:schedule:%s:%s:r%d", b, k.Date, k.Revision)
	if k.Variant != "" {
		s += ":" + k.Variant
	}
	return s
}

type Cache interface {
	// Get reports ok=false on a miss. Errors are transport failures.
	Get(ctx context.Context, key Key) (entries []models.ScheduleEntry, ok bool, err error)
	Set(ctx context.Context, key Key, entries []models.ScheduleEntry) error
}

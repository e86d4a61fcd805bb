package evaluation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultPeerCacheDays is the number of days kept in memory before spilling.
const DefaultPeerCacheDays = 512

// PeerEntry is one peer's outcome for one day.
type PeerEntry struct {
	Scores domain.Scores `msgpack:"s"`
	Failed bool          `msgpack:"f"`
}

// PeerCache memoizes peer predictions per date. Peers are evaluated with
// fixed parameters, so their output for a day never changes within a job.
// When more than maxDays dates are held, the oldest are spilled to dir as
// msgpack files and read back on demand.
type PeerCache struct {
	mu      sync.Mutex
	dir     string
	maxDays int
	mem     map[string]map[string]PeerEntry
	order   []string
	spilled map[string]bool
}

// NewPeerCache creates a cache. An empty dir keeps everything in memory.
func NewPeerCache(dir string, maxDays int) *PeerCache {
	if maxDays <= 0 {
		maxDays = DefaultPeerCacheDays
	}
	return &PeerCache{
		dir:     dir,
		maxDays: maxDays,
		mem:     make(map[string]map[string]PeerEntry),
		spilled: make(map[string]bool),
	}
}

// Lookup result labels.
const (
	LookupMemory = "memory"
	LookupDisk   = "disk"
	LookupMiss   = "miss"
)

// Get returns the cached entry for (date, peer) and where it was found.
func (c *PeerCache) Get(date, peer string) (PeerEntry, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if day, ok := c.mem[date]; ok {
		if e, ok := day[peer]; ok {
			return e, LookupMemory
		}
		return PeerEntry{}, LookupMiss
	}
	if !c.spilled[date] {
		return PeerEntry{}, LookupMiss
	}

	day, err := c.readSpill(date)
	if err != nil {
		delete(c.spilled, date)
		return PeerEntry{}, LookupMiss
	}
	c.admit(date, day)
	if e, ok := day[peer]; ok {
		return e, LookupDisk
	}
	return PeerEntry{}, LookupMiss
}

// Put stores the entry for (date, peer).
func (c *PeerCache) Put(date, peer string, entry PeerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	day, ok := c.mem[date]
	if !ok {
		if c.spilled[date] {
			if loaded, err := c.readSpill(date); err == nil {
				day = loaded
			}
		}
		if day == nil {
			day = make(map[string]PeerEntry)
		}
		if err := c.admit(date, day); err != nil {
			day[peer] = entry
			return err
		}
	}
	day[peer] = entry
	return nil
}

// Len returns the number of dates held in memory.
func (c *PeerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

// Clear drops every entry, including spilled files.
func (c *PeerCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for date := range c.spilled {
		if err := os.Remove(c.spillPath(date)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	c.mem = make(map[string]map[string]PeerEntry)
	c.order = nil
	c.spilled = make(map[string]bool)
	return errors.Join(errs...)
}

// admit puts day into memory, spilling the oldest dates when over capacity.
// Caller holds mu.
func (c *PeerCache) admit(date string, day map[string]PeerEntry) error {
	c.mem[date] = day
	c.order = append(c.order, date)

	for len(c.mem) > c.maxDays && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		entries, ok := c.mem[oldest]
		if !ok || oldest == date {
			continue
		}
		delete(c.mem, oldest)
		if c.dir == "" {
			continue
		}
		if err := c.writeSpill(oldest, entries); err != nil {
			return fmt.Errorf("failed to spill peer cache for %s: %w", oldest, err)
		}
		c.spilled[oldest] = true
	}
	return nil
}

func (c *PeerCache) spillPath(date string) string {
	return filepath.Join(c.dir, "peer_"+date+".msgpack")
}

func (c *PeerCache) writeSpill(date string, day map[string]PeerEntry) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(day)
	if err != nil {
		return err
	}
	return os.WriteFile(c.spillPath(date), data, 0644)
}

func (c *PeerCache) readSpill(date string) (map[string]PeerEntry, error) {
	data, err := os.ReadFile(c.spillPath(date))
	if err != nil {
		return nil, err
	}
	var day map[string]PeerEntry
	if err := msgpack.Unmarshal(data, &day); err != nil {
		return nil, err
	}
	if day == nil {
		day = make(map[string]PeerEntry)
	}
	return day, nil
}

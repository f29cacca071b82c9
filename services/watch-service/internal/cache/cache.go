package cache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	dbconnector "datawatch"
)

type Fetcher interface {
	Fetch(ctx context.Context, query string) (*dbconnector.QueryResult, error)
}

// Key pairs the literal query with the poll counter of the tick that asked for
// it. A fixed query under a bare query-string key would never refresh.
type Key struct {
	Query string
	Poll  uint64
}

type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

type Cache struct {
	fetcher Fetcher
	retain  uint64

	mu      sync.Mutex
	entries map[Key]*dbconnector.QueryResult
	maxPoll uint64
	hits    int
	misses  int

	group singleflight.Group
}

// New keeps results of the newest retain polls; anything older is evicted.
func New(fetcher Fetcher, retain int) *Cache {
	if retain <= 0 {
		retain = 1
	}
	return &Cache{
		fetcher: fetcher,
		retain:  uint64(retain),
		entries: map[Key]*dbconnector.QueryResult{},
	}
}

func (c *Cache) GetOrFetch(ctx context.Context, key Key) (*dbconnector.QueryResult, error) {
	if res, ok := c.lookup(key, true); ok {
		return res, nil
	}
	v, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		if res, ok := c.lookup(key, false); ok {
			return res, nil
		}
		res, err := c.fetcher.Fetch(ctx, key.Query)
		if err != nil {
			return nil, err
		}
		c.store(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dbconnector.QueryResult), nil
}

// Lookup returns a cached result without fetching.
func (c *Cache) Lookup(key Key) (*dbconnector.QueryResult, bool) {
	return c.lookup(key, true)
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[Key]*dbconnector.QueryResult{}
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

func (c *Cache) lookup(key Key, count bool) (*dbconnector.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key]
	if count {
		if ok {
			c.hits++
		} else {
			c.misses++
		}
	}
	return res, ok
}

func (c *Cache) store(key Key, res *dbconnector.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.Poll > c.maxPoll {
		c.maxPoll = key.Poll
	}
	c.entries[key] = res
	for k := range c.entries {
		if k.Poll+c.retain <= c.maxPoll {
			delete(c.entries, k)
		}
	}
}

func flightKey(key Key) string {
	return strconv.FormatUint(key.Poll, 10) + "\x00" + key.Query
}

// Package mediacatalog implements the read-through cache of audio
// assets (MediaCatalog) and the labeled outbound number pool
// (NumberLibrary) described for the Media & Number Catalogs component.
package mediacatalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// Asset is a resolved media asset.
type Asset struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Ext      string `json:"extension"`
	Title    string `json:"title"`
	RoomTag  string `json:"roomTag"`
	PathTag  string `json:"pathTag"`
	Duration int    `json:"duration"`
}

// Catalog is a process-wide, mutex-guarded memoization cache over a
// remote media-asset API. Entries are loaded on first access and never
// evicted during a process lifetime.
type Catalog struct {
	client  *resty.Client
	baseURL string

	mu        sync.Mutex
	byID      map[int64]*Asset
	byRoomTag map[string][]*Asset
}

// NewCatalog wraps an already-configured resty client pointed at the
// media-asset API's base URL.
func NewCatalog(client *resty.Client, baseURL string) *Catalog {
	return &Catalog{
		client:    client,
		baseURL:   baseURL,
		byID:      map[int64]*Asset{},
		byRoomTag: map[string][]*Asset{},
	}
}

// Asset resolves id, fetching and memoizing it on first access.
func (c *Catalog) Asset(ctx context.Context, id int64) (*Asset, error) {
	c.mu.Lock()
	if a, ok := c.byID[id]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	var asset Asset
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&asset).
		Get(fmt.Sprintf("%s/resource/%d", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("mediacatalog: fetch %d: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mediacatalog: fetch %d: status %d: %w", id, resp.StatusCode(), storyerr.DataIntegrityError)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[id] = &asset
	c.byRoomTag[asset.RoomTag] = append(c.byRoomTag[asset.RoomTag], &asset)
	return &asset, nil
}

// ByRoomTag returns every asset memoized so far under roomTag. Because
// the cache is populated lazily, this only reflects assets already
// resolved via Asset; it is not a full catalog query.
func (c *Catalog) ByRoomTag(roomTag string) []*Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Asset, len(c.byRoomTag[roomTag]))
	copy(out, c.byRoomTag[roomTag])
	return out
}

// Prime seeds the cache directly, used by tests and by narratives that
// ship a small fixed set of placeholder assets rather than hitting a
// live catalog.
func (c *Catalog) Prime(assets ...*Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range assets {
		c.byID[a.ID] = a
		c.byRoomTag[a.RoomTag] = append(c.byRoomTag[a.RoomTag], a)
	}
}

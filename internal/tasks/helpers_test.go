package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
)

type readyTokens struct {
	refreshes atomic.Int32
}

func (r *readyTokens) EnsureValidToken(context.Context) error { return nil }

func (r *readyTokens) Refresh(context.Context) error {
	r.refreshes.Add(1)
	return nil
}

func newTestInvoker() *services.Invoker {
	return services.NewInvoker(&readyTokens{}, nil)
}

func ptr[T any](v T) *T { return &v }

func trackIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%03d", i)
	}
	return ids
}

// featureStub answers every id with an energy of 0.5 and tracks request concurrency.
type featureStub struct {
	mu          sync.Mutex
	calls       [][]string
	inFlight    int
	maxInFlight int
	delay       time.Duration
	fail        func(chunk []string) bool
}

func (s *featureStub) GetAudioFeatures(ctx context.Context, ids []string) ([]models.FeatureRecord, error) {
	s.mu.Lock()
	s.calls = append(s.calls, ids)
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail != nil && s.fail(ids) {
		return nil, &services.APIError{StatusCode: 500, Message: "upstream"}
	}

	records := make([]models.FeatureRecord, len(ids))
	for i, id := range ids {
		records[i] = models.FeatureRecord{ID: id, Energy: ptr(0.5), DurationMS: 60000}
	}
	return records, nil
}

func (s *featureStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// mapCache is a FeatureCache without capacity limits.
type mapCache struct {
	mu   sync.Mutex
	data map[string]models.FeatureRecord
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]models.FeatureRecord)}
}

func (c *mapCache) Get(id string) (models.FeatureRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[id]
	return r, ok
}

func (c *mapCache) Set(id string, r models.FeatureRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[id] = r
}

// playlistStub serves a fixed item list and records paging and adds.
type playlistStub struct {
	playlist *services.SpotifyPlaylist
	items    []services.SpotifyPlaylistItem
	offsets  []int
	added    [][]string
	err      error
}

func (p *playlistStub) GetPlaylist(ctx context.Context, id, market string) (*services.SpotifyPlaylist, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.playlist == nil {
		return &services.SpotifyPlaylist{ID: id, Name: "Test"}, nil
	}
	return p.playlist, nil
}

func (p *playlistStub) GetPlaylistTracks(ctx context.Context, id string, limit, offset int, market string) (*services.Page[services.SpotifyPlaylistItem], error) {
	if p.err != nil {
		return nil, p.err
	}
	p.offsets = append(p.offsets, offset)
	start := min(offset, len(p.items))
	end := min(offset+limit, len(p.items))
	return &services.Page[services.SpotifyPlaylistItem]{
		Items:  p.items[start:end],
		Total:  len(p.items),
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (p *playlistStub) AddTracksToPlaylist(ctx context.Context, id string, uris []string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.added = append(p.added, uris)
	for _, uri := range uris {
		p.items = append(p.items, services.SpotifyPlaylistItem{Track: &services.SpotifyTrack{URI: uri}})
	}
	return "snapshot", nil
}

func itemsFor(uris ...string) []services.SpotifyPlaylistItem {
	items := make([]services.SpotifyPlaylistItem, len(uris))
	for i, uri := range uris {
		items[i] = services.SpotifyPlaylistItem{Track: &services.SpotifyTrack{ID: uri, URI: uri}}
	}
	return items
}

type fetcherFunc func(ctx context.Context, ids []string) (map[string]models.FeatureRecord, error)

func (f fetcherFunc) Fetch(ctx context.Context, ids []string) (map[string]models.FeatureRecord, error) {
	return f(ctx, ids)
}

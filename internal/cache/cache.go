package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
)

const lastStatusKey = "sync:last_status"

// Store caches provider daily change summaries and the last sync status so
// retry slots and status polls don't re-ask the provider.
type Store interface {
	GetSummary(date string) (*provider.ChangeSummary, bool)
	SetSummary(date string, summary *provider.ChangeSummary)
	GetLastStatus() (*database.SyncRun, bool)
	SetLastStatus(run *database.SyncRun)
	Clear()
	Stats() Stats
}

type Stats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	LastAccess time.Time `json:"last_access"`
}

type memoryStore struct {
	cache *gocache.Cache
	mu    sync.RWMutex
	stats Stats
}

func NewStore(ttl time.Duration) Store {
	return &memoryStore{
		cache: gocache.New(ttl, ttl*2),
	}
}

func (s *memoryStore) GetSummary(date string) (*provider.ChangeSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LastAccess = time.Now()

	if data, found := s.cache.Get("summary:" + date); found {
		if summary, ok := data.(*provider.ChangeSummary); ok {
			s.stats.Hits++
			return summary, true
		}
	}

	s.stats.Misses++
	return nil, false
}

func (s *memoryStore) SetSummary(date string, summary *provider.ChangeSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set("summary:"+date, summary, gocache.DefaultExpiration)
}

func (s *memoryStore) GetLastStatus() (*database.SyncRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LastAccess = time.Now()

	if data, found := s.cache.Get(lastStatusKey); found {
		if run, ok := data.(*database.SyncRun); ok {
			s.stats.Hits++
			return run, true
		}
	}

	s.stats.Misses++
	return nil, false
}

func (s *memoryStore) SetLastStatus(run *database.SyncRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Status outlives summaries: it is only replaced by the next run
	s.cache.Set(lastStatusKey, run, gocache.NoExpiration)
}

func (s *memoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Flush()
	s.stats = Stats{}
}

func (s *memoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.stats.Size = s.cache.ItemCount()
	return s.stats
}

package history

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps records in process memory. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]*Record // address -> records, oldest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]*Record)}
}

func (s *MemoryStore) Save(ctx context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return err
	}

	cp := *r
	cp.Address = strings.ToLower(r.Address)
	cp.Network = strings.ToLower(r.Network)

	s.mu.Lock()
	s.records[cp.Address] = trim(append(s.records[cp.Address], &cp), cp.Network)
	s.mu.Unlock()
	return nil
}

// trim drops the oldest record of network once it has more than MaxListLimit,
// the most any List can return.
func trim(records []*Record, network string) []*Record {
	count, oldest := 0, -1
	for i, r := range records {
		if r.Network != network {
			continue
		}
		if oldest < 0 {
			oldest = i
		}
		count++
	}
	if count <= MaxListLimit {
		return records
	}
	return slices.Delete(records, oldest, oldest+1)
}

// List returns matching records, most recent first
func (s *MemoryStore) List(ctx context.Context, q Query) ([]*Record, error) {
	q = q.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[q.Address]
	result := make([]*Record, 0, min(len(all), q.Limit))
	for i := len(all) - 1; i >= 0 && len(result) < q.Limit; i-- {
		if q.Network != "" && all[i].Network != q.Network {
			continue
		}
		cp := *all[i]
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

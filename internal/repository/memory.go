package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/axonhq/axon/internal/model"
)

// maxTrackedPaths bounds the distinct attack paths kept in memory; new paths
// beyond it are counted in the totals only.
const maxTrackedPaths = 10000

// MemoryStore keeps the aggregate view for verdicts seen by this process. It
// serves statistics when no database is configured.
type MemoryStore struct {
	mu          sync.Mutex
	counts      Counts
	recent      []int64 // arrival timestamps within the last hour, ascending
	attackPaths map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attackPaths: make(map[string]int64)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Write(_ context.Context, ev model.TrafficEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts.Total++
	switch ev.Prediction {
	case model.LabelAttack:
		m.counts.Attacks++
		if _, ok := m.attackPaths[ev.Path]; ok || len(m.attackPaths) < maxTrackedPaths {
			m.attackPaths[ev.Path]++
		}
	case model.LabelLegit:
		m.counts.Legit++
	}

	i := sort.Search(len(m.recent), func(i int) bool { return m.recent[i] > ev.Timestamp })
	m.recent = append(m.recent, 0)
	copy(m.recent[i+1:], m.recent[i:])
	m.recent[i] = ev.Timestamp
	m.trim(time.UnixMilli(ev.Timestamp))
	return nil
}

// trim drops timestamps that can no longer fall in the last hour.
func (m *MemoryStore) trim(now time.Time) {
	cutoff := now.Add(-time.Hour).UnixMilli()
	i := sort.Search(len(m.recent), func(i int) bool { return m.recent[i] > cutoff })
	m.recent = m.recent[i:]
}

func (m *MemoryStore) Stats(_ context.Context, now time.Time) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.counts
	cutoff := now.Add(-time.Hour).UnixMilli()
	i := sort.Search(len(m.recent), func(i int) bool { return m.recent[i] > cutoff })
	c.LastHour = int64(len(m.recent) - i)

	paths := make([]PathCount, 0, len(m.attackPaths))
	for p, n := range m.attackPaths {
		paths = append(paths, PathCount{Path: p, Count: n})
	}
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Count != paths[j].Count {
			return paths[i].Count > paths[j].Count
		}
		return paths[i].Path < paths[j].Path
	})
	if len(paths) > topAttackPaths {
		paths = paths[:topAttackPaths]
	}
	return BuildStats(c, paths, now), nil
}

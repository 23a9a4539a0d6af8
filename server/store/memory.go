package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hubenschmidt/go-reviewgraph/engine"
)

// NewMemoryStores returns stores backed by process-local maps.
func NewMemoryStores() *Stores {
	return &Stores{
		Reviews: newMemoryReviewStore(),
		Graphs:  newMemoryGraphStore(),
		Runs:    newMemoryRunStore(),
	}
}

type memoryReviewStore struct {
	mu      sync.RWMutex
	nextID  int64
	reviews map[int64]ReviewInfo
}

func newMemoryReviewStore() *memoryReviewStore {
	return &memoryReviewStore{
		reviews: make(map[int64]ReviewInfo),
	}
}

func (s *memoryReviewStore) Create(_ context.Context, r ReviewInfo) (ReviewInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = now()
	if r.Findings == nil {
		r.Findings = []any{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	s.reviews[r.ID] = r
	return r, nil
}

func (s *memoryReviewStore) Get(_ context.Context, id int64) (ReviewInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return ReviewInfo{}, notFound("review", id)
	}
	return r, nil
}

func (s *memoryReviewStore) List(_ context.Context) ([]ReviewInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ReviewInfo, 0, len(s.reviews))
	for _, r := range s.reviews {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

type memoryGraphStore struct {
	mu     sync.RWMutex
	nextID int64
	graphs map[int64]GraphInfo
}

func newMemoryGraphStore() *memoryGraphStore {
	return &memoryGraphStore{
		graphs: make(map[int64]GraphInfo),
	}
}

func (s *memoryGraphStore) Create(_ context.Context, g GraphInfo) (GraphInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	g.ID = s.nextID
	g.CreatedAt = now()
	s.graphs[g.ID] = g
	return g, nil
}

func (s *memoryGraphStore) Get(_ context.Context, id int64) (GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return GraphInfo{}, notFound("graph", id)
	}
	return g, nil
}

func (s *memoryGraphStore) List(_ context.Context) ([]GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]GraphInfo, 0, len(s.graphs))
	for _, g := range s.graphs {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// memoryRunStore hands out copies so callers never share slices with the
// stored record.
type memoryRunStore struct {
	mu     sync.RWMutex
	nextID int64
	runs   map[int64]RunInfo
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{
		runs: make(map[int64]RunInfo),
	}
}

func copyRun(r RunInfo) RunInfo {
	r.State = r.State.Clone()
	r.Log = append([]engine.LogEntry{}, r.Log...)
	r.Progress = append([]ProgressEntry{}, r.Progress...)
	return r
}

func (s *memoryRunStore) Create(_ context.Context, r RunInfo) (RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	if r.Status == "" {
		r.Status = RunCreated
	}
	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt
	r = copyRun(r)
	s.runs[r.ID] = r
	return copyRun(r), nil
}

func (s *memoryRunStore) Get(_ context.Context, id int64) (RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return RunInfo{}, notFound("run", id)
	}
	return copyRun(r), nil
}

func (s *memoryRunStore) List(_ context.Context, graphID int64) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		if graphID != 0 && r.GraphID != graphID {
			continue
		}
		result = append(result, copyRun(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *memoryRunStore) update(id int64, fn func(r *RunInfo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return notFound("run", id)
	}
	fn(&r)
	r.UpdatedAt = now()
	s.runs[id] = r
	return nil
}

func (s *memoryRunStore) SetStatus(_ context.Context, id int64, status RunStatus) error {
	return s.update(id, func(r *RunInfo) {
		r.Status = status
	})
}

func (s *memoryRunStore) AppendProgress(_ context.Context, id int64, p ProgressEntry) error {
	return s.update(id, func(r *RunInfo) {
		r.Progress = append(r.Progress, p)
	})
}

func (s *memoryRunStore) Finish(_ context.Context, id int64, status RunStatus, res engine.Result) error {
	return s.update(id, func(r *RunInfo) {
		r.Status = status
		r.State = res.State.Clone()
		r.Log = append([]engine.LogEntry{}, res.Logs...)
		r.Iterations = res.Iterations
		r.StopReason = string(res.StopReason)
	})
}

package state

import (
	"context"
	"sort"
	"sync"

	"digikala/crawler/internal/domain"
)

// VisitedSet records which categories a traversal has claimed. Add is
// atomic with its membership check, so exactly one caller sees true for a
// given category.
type VisitedSet interface {
	Add(ctx context.Context, category domain.Category) (bool, error)
	Contains(ctx context.Context, category domain.Category) (bool, error)
	Members(ctx context.Context) ([]domain.Category, error)
	Len(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

type memoryVisitedSet struct {
	mu      sync.Mutex
	members map[domain.Category]struct{}
}

func NewMemoryVisitedSet() VisitedSet {
	return &memoryVisitedSet{members: make(map[domain.Category]struct{})}
}

func (s *memoryVisitedSet) Add(_ context.Context, category domain.Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[category]; ok {
		return false, nil
	}
	s.members[category] = struct{}{}
	return true, nil
}

func (s *memoryVisitedSet) Contains(_ context.Context, category domain.Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.members[category]
	return ok, nil
}

// Members returns the set sorted by slug.
func (s *memoryVisitedSet) Members(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	out := make([]domain.Category, 0, len(s.members))
	for c := range s.members {
		out = append(out, c)
	}
	s.mu.Unlock()

	sortCategories(out)
	return out, nil
}

func (s *memoryVisitedSet) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members), nil
}

func (s *memoryVisitedSet) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[domain.Category]struct{})
	return nil
}

func sortCategories(categories []domain.Category) {
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
}

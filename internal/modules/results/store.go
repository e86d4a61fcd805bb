// Package results holds the chronologically ordered daily lottery results and
// the loaders and repository that produce them.
package results

import (
	"fmt"
	"sort"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Store is an immutable, date-ordered snapshot of daily results.
type Store struct {
	results []domain.DailyResult
	index   map[string]int
}

// NewStore sorts results by date. Dates must be unique.
func NewStore(results []domain.DailyResult) (*Store, error) {
	sorted := make([]domain.DailyResult, len(results))
	for i, r := range results {
		r.Date = domain.TruncateDay(r.Date)
		sorted[i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	index := make(map[string]int, len(sorted))
	for i, r := range sorted {
		key := r.DateKey()
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate result date %s", key)
		}
		index[key] = i
	}
	return &Store{results: sorted, index: index}, nil
}

// Len returns the number of days held.
func (s *Store) Len() int {
	return len(s.results)
}

// Results returns all results in date order. Callers must not modify them.
func (s *Store) Results() []domain.DailyResult {
	return s.results[:len(s.results):len(s.results)]
}

// First returns the earliest result.
func (s *Store) First() (domain.DailyResult, bool) {
	if len(s.results) == 0 {
		return domain.DailyResult{}, false
	}
	return s.results[0], true
}

// Last returns the latest result.
func (s *Store) Last() (domain.DailyResult, bool) {
	if len(s.results) == 0 {
		return domain.DailyResult{}, false
	}
	return s.results[len(s.results)-1], true
}

// On returns the result recorded on date.
func (s *Store) On(date time.Time) (domain.DailyResult, bool) {
	i, ok := s.index[domain.TruncateDay(date).Format(domain.DateLayout)]
	if !ok {
		return domain.DailyResult{}, false
	}
	return s.results[i], true
}

// Has reports whether date has a record.
func (s *Store) Has(date time.Time) bool {
	_, ok := s.On(date)
	return ok
}

// IsLast reports whether date is the latest recorded date.
func (s *Store) IsLast(date time.Time) bool {
	last, ok := s.Last()
	return ok && last.Date.Equal(domain.TruncateDay(date))
}

// HistoryBefore returns every result strictly before date. The returned slice
// has its capacity clipped so appends by callers cannot touch the store.
func (s *Store) HistoryBefore(date time.Time) []domain.DailyResult {
	day := domain.TruncateDay(date)
	n := sort.Search(len(s.results), func(i int) bool { return !s.results[i].Date.Before(day) })
	return s.results[:n:n]
}

// Between returns results with from <= date <= to.
func (s *Store) Between(from, to time.Time) []domain.DailyResult {
	from, to = domain.TruncateDay(from), domain.TruncateDay(to)
	lo := sort.Search(len(s.results), func(i int) bool { return !s.results[i].Date.Before(from) })
	hi := sort.Search(len(s.results), func(i int) bool { return s.results[i].Date.After(to) })
	if lo >= hi {
		return nil
	}
	return s.results[lo:hi:hi]
}

// Package search generates candidate parameter vectors: step-perturbed
// neighbors for hill climbing and bounded Cartesian grids.
package search

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Canonical renders the numeric entries of p as sorted name=value pairs.
// Integers print as integers and reals with six significant digits, so two
// vectors with the same search point always render identically.
func Canonical(p domain.ParameterVector) string {
	var b strings.Builder
	for i, key := range p.NumericKeys() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(FormatValue(p[key]))
	}
	return b.String()
}

// FormatValue renders a numeric value the way Canonical does.
func FormatValue(v any) string {
	if domain.IsInteger(v) {
		f, _ := domain.ToFloat(v)
		return strconv.FormatInt(int64(f), 10)
	}
	f, ok := domain.ToFloat(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(domain.RoundSignificant(f, 6), 'g', -1, 64)
}

// Fingerprint hashes the canonical form with FNV-1a.
func Fingerprint(p domain.ParameterVector) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(Canonical(p)))
	return h.Sum64()
}

// VisitedSet records the fingerprints of vectors already queued in a session.
// It is owned by a single worker and is not safe for concurrent use.
type VisitedSet struct {
	seen map[uint64]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[uint64]struct{}, 1024)}
}

// Add marks p visited and reports whether it was new.
func (s *VisitedSet) Add(p domain.ParameterVector) bool {
	fp := Fingerprint(p)
	if _, ok := s.seen[fp]; ok {
		return false
	}
	s.seen[fp] = struct{}{}
	return true
}

// Contains reports whether p was visited.
func (s *VisitedSet) Contains(p domain.ParameterVector) bool {
	_, ok := s.seen[Fingerprint(p)]
	return ok
}

// Len returns the number of visited search points.
func (s *VisitedSet) Len() int {
	return len(s.seen)
}

package refdata

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/bluedeem/clinic-ai-platform/internal/text"
)

// MatchThreshold is the minimum normalized similarity for a fuzzy name match.
const MatchThreshold = 0.72

type availKey struct {
	date     string
	doctorID string
}

// Snapshot is an immutable, id-indexed view of the clinic reference data.
// All lookups are O(1); fuzzy matches scan the (small) name lists.
type Snapshot struct {
	doctors  []Doctor
	branches []Branch
	services []Service

	doctorByID   map[string]int
	branchByID   map[string]int
	serviceByID  map[string]int
	availability map[availKey]Availability
}

// NewSnapshot indexes the given records. Input slices are copied; callers may
// reuse them after the call.
func NewSnapshot(doctors []Doctor, branches []Branch, services []Service, availability []Availability) *Snapshot {
	s := &Snapshot{
		doctors:      append([]Doctor(nil), doctors...),
		branches:     append([]Branch(nil), branches...),
		services:     append([]Service(nil), services...),
		doctorByID:   make(map[string]int, len(doctors)),
		branchByID:   make(map[string]int, len(branches)),
		serviceByID:  make(map[string]int, len(services)),
		availability: make(map[availKey]Availability, len(availability)),
	}
	for i, d := range s.doctors {
		s.doctorByID[d.ID] = i
	}
	for i, b := range s.branches {
		s.branchByID[b.ID] = i
	}
	for i, v := range s.services {
		s.serviceByID[v.ID] = i
	}
	for _, a := range availability {
		s.availability[availKey{date: a.Date, doctorID: a.DoctorID}] = a
	}
	return s
}

// Doctors returns all doctors in sheet order.
func (s *Snapshot) Doctors() []Doctor { return s.doctors }

// Branches returns all branches in sheet order.
func (s *Snapshot) Branches() []Branch { return s.branches }

// Services returns all services in sheet order.
func (s *Snapshot) Services() []Service { return s.services }

// Doctor looks a doctor up by id.
func (s *Snapshot) Doctor(id string) (Doctor, bool) {
	i, ok := s.doctorByID[id]
	if !ok {
		return Doctor{}, false
	}
	return s.doctors[i], true
}

// Branch looks a branch up by id.
func (s *Snapshot) Branch(id string) (Branch, bool) {
	i, ok := s.branchByID[id]
	if !ok {
		return Branch{}, false
	}
	return s.branches[i], true
}

// Service looks a service up by id.
func (s *Snapshot) Service(id string) (Service, bool) {
	i, ok := s.serviceByID[id]
	if !ok {
		return Service{}, false
	}
	return s.services[i], true
}

// AvailabilityOn returns the day-specific row for (date, doctorID) if one
// exists. date is YYYY-MM-DD.
func (s *Snapshot) AvailabilityOn(date, doctorID string) (Availability, bool) {
	a, ok := s.availability[availKey{date: date, doctorID: doctorID}]
	return a, ok
}

// MatchDoctor fuzzy-matches free text against doctor names.
func (s *Snapshot) MatchDoctor(name string) (Doctor, bool) {
	i, ok := bestMatch(name, len(s.doctors), func(i int) string { return s.doctors[i].Name })
	if !ok {
		return Doctor{}, false
	}
	return s.doctors[i], true
}

// MatchService fuzzy-matches free text against service names.
func (s *Snapshot) MatchService(name string) (Service, bool) {
	i, ok := bestMatch(name, len(s.services), func(i int) string { return s.services[i].Name })
	if !ok {
		return Service{}, false
	}
	return s.services[i], true
}

// MatchBranch fuzzy-matches free text against branch names.
func (s *Snapshot) MatchBranch(name string) (Branch, bool) {
	i, ok := bestMatch(name, len(s.branches), func(i int) string { return s.branches[i].Name })
	if !ok {
		return Branch{}, false
	}
	return s.branches[i], true
}

// bestMatch returns the index with the highest similarity at or above
// MatchThreshold, or false when nothing qualifies.
func bestMatch(query string, n int, nameAt func(int) string) (int, bool) {
	q := text.Normalize(query)
	if q == "" {
		return 0, false
	}
	bestIdx, bestScore := -1, 0.0
	for i := 0; i < n; i++ {
		score := Similarity(q, text.Normalize(nameAt(i)))
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < MatchThreshold {
		return 0, false
	}
	return bestIdx, true
}

// Similarity is a normalized Levenshtein ratio in [0,1] over already
// normalized inputs. Containment of one whole string in the other counts as
// a strong match so "د. سارة" finds "د. سارة الحربي".
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if len([]rune(a)) >= 3 && len([]rune(b)) >= 3 {
		if strings.Contains(a, b) || strings.Contains(b, a) {
			return 0.9
		}
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}

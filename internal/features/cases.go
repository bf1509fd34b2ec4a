package features

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

// caseHistoryDays is how much daily case history is retained per village.
const caseHistoryDays = 30

// CaseStore holds recent daily reported-case totals per village, newest
// last. Seeded deterministically so feature vectors are reproducible.
type CaseStore struct {
	mu     sync.RWMutex
	counts map[string][]int
}

// NewSeededCaseStore builds a store with caseHistoryDays of plausible
// background counts per village, derived from the seed and village id.
func NewSeededCaseStore(seed int64, villageIDs []string) *CaseStore {
	s := &CaseStore{counts: make(map[string][]int, len(villageIDs))}
	for _, id := range villageIDs {
		h := fnv.New64a()
		h.Write([]byte(id))
		rng := rand.New(rand.NewSource(seed + int64(h.Sum64()%100000)))
		days := make([]int, caseHistoryDays)
		for i := range days {
			// background illness noise, occasionally a small cluster
			days[i] = rng.Intn(3)
			if rng.Float64() < 0.05 {
				days[i] += rng.Intn(5)
			}
		}
		s.counts[id] = days
	}
	return s
}

// Append records today's case total for a village, evicting the oldest.
func (s *CaseStore) Append(villageID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := s.counts[villageID]
	if len(days) >= caseHistoryDays {
		days = days[1:]
	}
	s.counts[villageID] = append(days, count)
}

// Lag returns the case count n days back, 0 when history is short.
func (s *CaseStore) Lag(villageID string, n int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := s.counts[villageID]
	if n <= 0 || n > len(days) {
		return 0
	}
	return float64(days[len(days)-n])
}

// RecentRate returns the mean daily case count over the last n days.
func (s *CaseStore) RecentRate(villageID string, n int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := s.counts[villageID]
	if len(days) == 0 {
		return 0
	}
	if n > len(days) {
		n = len(days)
	}
	sum := 0
	for _, c := range days[len(days)-n:] {
		sum += c
	}
	return float64(sum) / float64(n)
}

// Package memory provides process-local report and vote stores.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hylla/vettrack/internal/domain"
)

// key identifies one (user, locale) pair.
type key struct {
	user   domain.UserID
	locale domain.LocaleID
}

// reportEntry guards the records of one key so different keys never contend.
type reportEntry struct {
	mu      sync.Mutex
	reports domain.UserLocaleReports
}

// Store keeps report records and votes in memory.
type Store struct {
	mu      sync.Mutex
	entries map[key]*reportEntry

	votesMu sync.RWMutex
	votes   map[key]map[string]domain.Vote
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		entries: map[key]*reportEntry{},
		votes:   map[key]map[string]domain.Vote{},
	}
}

// entry returns the entry for k, creating it on first use.
func (s *Store) entry(k key) *reportEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		e = &reportEntry{reports: domain.NewUserLocaleReports(k.user, k.locale)}
		s.entries[k] = e
	}
	return e
}

// GetReports returns a copy of the records for one pair; unknown pairs yield an empty set.
func (s *Store) GetReports(_ context.Context, user domain.UserID, locale domain.LocaleID) (domain.UserLocaleReports, error) {
	s.mu.Lock()
	e, ok := s.entries[key{user, locale}]
	s.mu.Unlock()
	if !ok {
		return domain.NewUserLocaleReports(user, locale), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.Clone(), nil
}

// ApplyReportMark upserts one record under the pair's lock.
func (s *Store) ApplyReportMark(_ context.Context, mark domain.ReportMark) (bool, error) {
	return applyMark(s.entry(key{mark.User, mark.Locale}), mark), nil
}

func applyMark(e *reportEntry, mark domain.ReportMark) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.Apply(mark)
}

// ListUserReports returns every record set of one user, ordered by locale.
func (s *Store) ListUserReports(_ context.Context, user domain.UserID) ([]domain.UserLocaleReports, error) {
	return s.snapshot(func(k key) bool { return k.user == user }), nil
}

// ListLocaleReports returns every record set of one locale, ordered by user.
func (s *Store) ListLocaleReports(_ context.Context, locale domain.LocaleID) ([]domain.UserLocaleReports, error) {
	return s.snapshot(func(k key) bool { return k.locale == locale }), nil
}

// snapshot copies the matching non-empty record sets, ordered by (locale, user).
func (s *Store) snapshot(keep func(key) bool) []domain.UserLocaleReports {
	s.mu.Lock()
	matched := make([]*reportEntry, 0)
	for k, e := range s.entries {
		if keep(k) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	out := make([]domain.UserLocaleReports, 0, len(matched))
	for _, e := range matched {
		e.mu.Lock()
		if len(e.reports.Statuses) > 0 {
			out = append(out, e.reports.Clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b domain.UserLocaleReports) int {
		return cmp.Or(cmp.Compare(a.Locale, b.Locale), cmp.Compare(a.User, b.User))
	})
	return out
}

// ResetReports clears every record set in place.
// Entries stay registered so a mark racing the reset never lands on a detached entry.
func (s *Store) ResetReports(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		e.mu.Lock()
		e.reports = domain.NewUserLocaleReports(k.user, k.locale)
		e.mu.Unlock()
	}
	return nil
}

// RecordVote stores one vote, replacing the user's earlier vote on the same path.
func (s *Store) RecordVote(_ context.Context, vote domain.Vote) error {
	s.votesMu.Lock()
	defer s.votesMu.Unlock()
	k := key{vote.User, vote.Locale}
	byPath, ok := s.votes[k]
	if !ok {
		byPath = map[string]domain.Vote{}
		s.votes[k] = byPath
	}
	byPath[vote.Path] = vote
	return nil
}

// ListVotes returns one user's votes in one locale, ordered by path.
func (s *Store) ListVotes(_ context.Context, user domain.UserID, locale domain.LocaleID) ([]domain.Vote, error) {
	s.votesMu.RLock()
	defer s.votesMu.RUnlock()
	byPath := s.votes[key{user, locale}]
	out := make([]domain.Vote, 0, len(byPath))
	for _, v := range byPath {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b domain.Vote) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return out, nil
}

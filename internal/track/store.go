package track

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/brunoga/deep"
)

// ApplyResult summarizes one reconciliation pass. For a full snapshot, ids the previous
// contents already held count as updated and only ids the snapshot drops count as removed.
type ApplyResult struct {
	Created  int
	Updated  int
	Removed  int
	Rejected int
	// Err joins the reasons for every rejected record, nil if none were rejected.
	Err error
}

// Store is the client-side track table. All mutation happens under one lock per reconcile so a
// reader never sees a half-applied batch.
type Store struct {
	mu            sync.RWMutex
	tracks        map[string]*Track
	historyLength int
	logger        *slog.Logger
}

// NewStore creates an empty store whose trails keep at most historyLength fixes.
func NewStore(historyLength int, logger *slog.Logger) *Store {
	if historyLength < 1 {
		historyLength = DefaultHistoryLength
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		tracks:        make(map[string]*Track),
		historyLength: historyLength,
		logger:        logger,
	}
}

// ApplyFullSnapshot replaces the store's contents with the records of a full snapshot.
func (s *Store) ApplyFullSnapshot(records []Record) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ApplyResult
	var rejects []error

	previous := s.tracks
	s.tracks = make(map[string]*Track, len(records))

	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			rejects = append(rejects, s.reject(rec, err))
			continue
		}

		if existing, ok := s.tracks[rec.ID]; ok {
			// same id twice in one snapshot, treat the second as an update
			existing.merge(rec, s.historyLength)
			continue
		}

		tt, err := rec.parseType()
		if err != nil {
			rejects = append(rejects, s.reject(rec, err))
			continue
		}
		s.tracks[rec.ID] = newTrack(rec, tt, s.historyLength)
		if _, ok := previous[rec.ID]; ok {
			result.Updated++
		} else {
			result.Created++
		}
	}

	for id := range previous {
		if _, ok := s.tracks[id]; !ok {
			result.Removed++
		}
	}

	result.Rejected = len(rejects)
	result.Err = errors.Join(rejects...)

	return result
}

// ApplyIncrementalUpdate merges an update batch into the store.
//
// Tracks named in the batch are updated or created, then every live track the batch does not
// name is removed. Tracks created by server configuration are never removed here. A rejected
// record that still carries an id counts as naming that id, so a bad field does not drop a track.
func (s *Store) ApplyIncrementalUpdate(records []Record) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ApplyResult
	var rejects []error
	seen := make(map[string]struct{}, len(records))

	// merge and create
	for i := range records {
		rec := &records[i]
		if rec.ID != "" {
			seen[rec.ID] = struct{}{}
		}

		if err := rec.Validate(); err != nil {
			rejects = append(rejects, s.reject(rec, err))
			continue
		}

		if existing, ok := s.tracks[rec.ID]; ok {
			s.logTypeChange(existing, rec)
			existing.merge(rec, s.historyLength)
			result.Updated++
			continue
		}

		tt, err := rec.parseType()
		if err != nil {
			rejects = append(rejects, s.reject(rec, err))
			continue
		}
		s.tracks[rec.ID] = newTrack(rec, tt, s.historyLength)
		result.Created++
	}

	// remove, only after every merge so the pass sees the final state of this cycle
	for id, t := range s.tracks {
		if _, ok := seen[id]; ok || t.CreatedByConfig {
			continue
		}
		delete(s.tracks, id)
		result.Removed++
	}

	result.Rejected = len(rejects)
	result.Err = errors.Join(rejects...)

	return result
}

func (s *Store) reject(rec *Record, err error) error {
	s.logger.Warn("skipping malformed track record", slog.String("id", rec.ID), slog.Any("error", err))
	return fmt.Errorf("record %q: %w", rec.ID, err)
}

// logTypeChange records an ignored type change at debug level; the type is fixed at creation.
func (s *Store) logTypeChange(t *Track, rec *Record) {
	if rec.TrackType == "" {
		return
	}
	if tt, err := ParseTrackType(rec.TrackType); err == nil && tt != t.Type {
		s.logger.Debug("ignoring track type change",
			slog.String("id", t.ID),
			slog.String("stored", t.Type.String()),
			slog.String("incoming", tt.String()))
	}
}

// Restore replaces the store's contents with previously saved tracks, e.g. from a cache.
func (s *Store) Restore(tracks []Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks = make(map[string]*Track, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		restored := deep.MustCopy(t)
		if excess := len(restored.History) - s.historyLength; excess > 0 {
			restored.History = restored.History[excess:]
		}
		s.tracks[t.ID] = &restored
	}

	return len(s.tracks)
}

// Get returns a copy of the track with the given id.
func (s *Store) Get(id string) (Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[id]
	if !ok {
		return Track{}, false
	}
	return deep.MustCopy(*t), true
}

// Len returns the number of tracks held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tracks)
}

// Snapshot returns copies of all tracks sorted by id. Callers may keep and modify the copies
// without affecting the store.
func (s *Store) Snapshot() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, deep.MustCopy(*t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// CountByType counts the tracks of each type.
func (s *Store) CountByType() map[TrackType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[TrackType]int)
	for _, t := range s.tracks {
		counts[t.Type]++
	}
	return counts
}

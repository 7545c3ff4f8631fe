package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"anpr-client/internal/domain/anpr"
	"anpr-client/internal/storage"
)

// DefaultCapacity is how many results the history keeps.
const DefaultCapacity = 5

const warningBuffer = 16

type HistoryState int

const (
	StateUninitialized HistoryState = iota
	StateLoaded
	// StateDegraded means the last write to storage failed and the history
	// only lives in memory until a later write succeeds.
	StateDegraded
)

func (s HistoryState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateDegraded:
		return "degraded_memory_only"
	default:
		return fmt.Sprintf("HistoryState(%d)", int(s))
	}
}

// Warning is a non-fatal problem the history recovered from.
// Err wraps ErrPersistenceFailure or ErrCorruptPersistedState.
type Warning struct {
	Err error
	At  time.Time
}

func (w Warning) Error() string { return w.Err.Error() }
func (w Warning) Unwrap() error { return w.Err }

// HistoryStore keeps the most recent detection results in memory and
// mirrors them, without images, to a single named record in storage.
// None of its operations return errors: storage problems degrade the store
// to memory-only mode and are reported on Warnings.
type HistoryStore struct {
	store    storage.Store
	key      string
	capacity int
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	entries  anpr.HistoryLog
	state    HistoryState
	last     *Warning
	warnings chan Warning
}

func NewHistoryStore(store storage.Store, key string, capacity int, log zerolog.Logger) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &HistoryStore{
		store:    store,
		key:      key,
		capacity: capacity,
		log:      log.With().Str("component", "history").Str("key", key).Logger(),
		now:      time.Now,
		entries:  anpr.HistoryLog{},
		warnings: make(chan Warning, warningBuffer),
	}
}

// Load replaces the in-memory history with the persisted one. An absent
// record is an empty history. A record that fails to parse, or holds any
// invalid entry, is discarded as a whole.
func (h *HistoryStore) Load(ctx context.Context) anpr.HistoryLog {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.loadLocked(ctx)
	return h.snapshotLocked()
}

func (h *HistoryStore) loadLocked(ctx context.Context) {
	h.entries = anpr.HistoryLog{}
	h.state = StateLoaded

	data, found, err := h.store.Get(ctx, h.key)
	if err != nil {
		h.state = StateDegraded
		h.warnLocked(fmt.Errorf("%w: read: %w", ErrPersistenceFailure, err))
		return
	}
	if !found {
		h.log.Debug().Msg("no persisted history")
		return
	}

	entries, err := decodeHistory(data)
	if err != nil {
		h.warnLocked(fmt.Errorf("%w: %w", ErrCorruptPersistedState, err))
		return
	}
	if len(entries) > h.capacity {
		entries = entries[len(entries)-h.capacity:]
	}
	h.entries = entries

	h.log.Debug().Int("entries", len(entries)).Msg("loaded persisted history")
}

// Append adds result as the newest entry, evicts the oldest entries beyond
// capacity, and persists the result. The returned log still carries images
// for results created in this session even though storage never sees them.
// A store that was never loaded loads first so earlier history survives.
func (h *HistoryStore) Append(ctx context.Context, result anpr.DetectionResult) anpr.HistoryLog {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateUninitialized {
		h.loadLocked(ctx)
	}

	next := make(anpr.HistoryLog, 0, h.capacity)
	next = append(next, h.entries...)
	next = append(next, result)
	if len(next) > h.capacity {
		next = next[len(next)-h.capacity:]
	}
	h.entries = next

	h.persistLocked(ctx)
	return h.snapshotLocked()
}

func (h *HistoryStore) persistLocked(ctx context.Context) {
	data, err := json.Marshal(anpr.PersistView(h.entries))
	if err == nil {
		err = h.store.Set(ctx, h.key, data)
	}
	if err != nil {
		h.state = StateDegraded
		h.warnLocked(fmt.Errorf("%w: write: %w", ErrPersistenceFailure, err))
		return
	}

	if h.state == StateDegraded {
		h.log.Info().Msg("history persistence recovered")
	}
	h.state = StateLoaded
}

// Clear drops every entry from memory and storage. Calling it on an empty
// history is a no-op apart from the storage call.
func (h *HistoryStore) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = anpr.HistoryLog{}
	if err := h.store.Remove(ctx, h.key); err != nil {
		h.state = StateDegraded
		h.warnLocked(fmt.Errorf("%w: remove: %w", ErrPersistenceFailure, err))
		return
	}
	h.state = StateLoaded
	h.log.Info().Msg("history cleared")
}

// Entries returns the current history, oldest first.
func (h *HistoryStore) Entries() anpr.HistoryLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *HistoryStore) Entry(id string) (anpr.DetectionResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.entries {
		if r.ID == id {
			return r, true
		}
	}
	return anpr.DetectionResult{}, false
}

func (h *HistoryStore) Summary() anpr.Summary {
	return anpr.SummaryStatistics(h.Entries())
}

func (h *HistoryStore) State() HistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Degraded reports whether the history currently lives in memory only.
func (h *HistoryStore) Degraded() bool {
	return h.State() == StateDegraded
}

// Warnings delivers recovered problems. Sends never block; when nobody
// drains the channel, newer warnings are dropped and only LastWarning
// keeps up.
func (h *HistoryStore) Warnings() <-chan Warning {
	return h.warnings
}

func (h *HistoryStore) LastWarning() *Warning {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil
	}
	w := *h.last
	return &w
}

func (h *HistoryStore) warnLocked(err error) {
	w := Warning{Err: err, At: h.now()}
	h.last = &w

	h.log.Warn().Err(err).Str("state", h.state.String()).Msg("history storage problem")

	select {
	case h.warnings <- w:
	default:
		h.log.Debug().Msg("warning channel full, dropping warning")
	}
}

func (h *HistoryStore) snapshotLocked() anpr.HistoryLog {
	out := make(anpr.HistoryLog, len(h.entries))
	copy(out, h.entries)
	return out
}

func decodeHistory(data []byte) (anpr.HistoryLog, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, errors.New("history record is null")
	}

	entries := make(anpr.HistoryLog, 0, len(items))
	for i, item := range items {
		entry, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(raw json.RawMessage) (anpr.DetectionResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return anpr.DetectionResult{}, err
	}
	if obj == nil {
		return anpr.DetectionResult{}, errors.New("entry is null")
	}

	id, err := storedID(obj["id"])
	if err != nil {
		return anpr.DetectionResult{}, err
	}

	tsRaw, _ := obj["timestamp"].(string)
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return anpr.DetectionResult{}, fmt.Errorf("invalid timestamp %q", tsRaw)
	}

	stored := anpr.StoredResult{ID: id}
	for field, dst := range map[string]*int{"cars": &stored.Cars, "plates": &stored.Plates} {
		n, ok := toCount(obj[field])
		if !ok {
			return anpr.DetectionResult{}, fmt.Errorf("%s must be a non-negative integer", field)
		}
		*dst = n
	}

	if v, ok := obj["plateTexts"]; ok && v != nil {
		if stored.PlateTexts, err = toStrings(v); err != nil {
			return anpr.DetectionResult{}, fmt.Errorf("plateTexts %w", err)
		}
	}
	// records written before brand detection existed have no carBrands
	if v, ok := obj["carBrands"]; ok && v != nil {
		if stored.CarBrands, err = toStrings(v); err != nil {
			return anpr.DetectionResult{}, fmt.Errorf("carBrands %w", err)
		}
	}

	return anpr.FromStored(stored, ts.UTC()), nil
}

// storedID accepts string ids and the numeric millisecond ids of older records.
func storedID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", errors.New("empty id")
		}
		return id, nil
	case json.Number:
		if _, err := id.Int64(); err != nil {
			return "", fmt.Errorf("invalid id %s", id)
		}
		return id.String(), nil
	default:
		return "", errors.New("missing id")
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anpr-client/internal/domain/anpr"
	"anpr-client/internal/storage"
)

const historyKey = "anpr_analyses"

func newTestHistory(store storage.Store) *HistoryStore {
	return NewHistoryStore(store, historyKey, DefaultCapacity, zerolog.Nop())
}

func storedEntries(t *testing.T, store storage.Store) []map[string]any {
	t.Helper()
	data, found, err := store.Get(context.Background(), historyKey)
	require.NoError(t, err)
	require.True(t, found)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func drainWarning(t *testing.T, h *HistoryStore) Warning {
	t.Helper()
	select {
	case w := <-h.Warnings():
		return w
	default:
		t.Fatal("expected a warning")
		return Warning{}
	}
}

func TestHistoryStore_LoadAbsentRecord(t *testing.T) {
	h := newTestHistory(storage.NewMemoryStore())
	assert.Equal(t, StateUninitialized, h.State())

	log := h.Load(context.Background())

	assert.Empty(t, log)
	assert.Equal(t, StateLoaded, h.State())
	assert.Nil(t, h.LastWarning())
}

func TestHistoryStore_AppendEvictsOldestFirst(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)

	var log anpr.HistoryLog
	for i := 1; i <= 5; i++ {
		log = h.Append(ctx, result(i, 1, 1, "P"))
		assert.Len(t, log, i)
	}
	assert.Equal(t, []string{"id-1", "id-2", "id-3", "id-4", "id-5"}, ids(log))

	log = h.Append(ctx, result(6, 1, 1, "P"))
	assert.Equal(t, []string{"id-2", "id-3", "id-4", "id-5", "id-6"}, ids(log))

	for i := 7; i <= 12; i++ {
		log = h.Append(ctx, result(i, 1, 1, "P"))
		assert.Len(t, log, DefaultCapacity)
	}
	assert.Equal(t, []string{"id-8", "id-9", "id-10", "id-11", "id-12"}, ids(log))
	assert.Len(t, storedEntries(t, store), DefaultCapacity)
}

func TestHistoryStore_PersistedEntriesHaveNoImages(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)

	log := h.Append(ctx, result(1, 2, 1, "AB123"))

	require.Len(t, log, 1)
	assert.Equal(t, "annotated-1", log[0].AnnotatedImage)
	assert.Equal(t, []string{"thumb"}, log[0].PlateImages)

	entries := storedEntries(t, store)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "image")
	assert.NotContains(t, entries[0], "plateImages")
	assert.NotContains(t, entries[0], "hasImage")
	assert.Equal(t, map[string]any{
		"id":         "id-1",
		"timestamp":  "2025-03-01T10:00:01.000Z",
		"cars":       float64(2),
		"plates":     float64(1),
		"plateTexts": []any{"AB123"},
		"carBrands":  []any{"Peugeot 208"},
	}, entries[0])
}

func TestHistoryStore_ReloadDropsImagesKeepsData(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestHistory(store)
	first.Load(ctx)
	first.Append(ctx, result(1, 2, 1, "AB123"))
	first.Append(ctx, result(2, 1, 1, "CD456"))

	second := newTestHistory(store)
	log := second.Load(ctx)

	require.Len(t, log, 2)
	assert.Equal(t, "id-1", log[0].ID)
	assert.Equal(t, baseTime.Add(1e9), log[0].Timestamp)
	assert.Equal(t, []string{"CD456"}, log[1].PlateTexts)
	assert.Empty(t, log[0].AnnotatedImage)
	assert.False(t, log[0].HasImage)
	assert.Equal(t, first.Summary(), second.Summary())
}

func TestHistoryStore_PersistFailureDegradesAndRecovers(t *testing.T) {
	store := newFlakyStore()
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)

	h.Append(ctx, result(1, 1, 1, "A"))
	h.Append(ctx, result(2, 1, 1, "B"))
	assert.False(t, h.Degraded())

	store.setErr = errors.New("disk full")
	log := h.Append(ctx, result(3, 1, 1, "C"))

	assert.Equal(t, []string{"id-1", "id-2", "id-3"}, ids(log))
	assert.Equal(t, StateDegraded, h.State())
	w := drainWarning(t, h)
	assert.True(t, errors.Is(w, ErrPersistenceFailure))
	assert.Contains(t, w.Error(), "disk full")

	// storage still holds the last good copy
	reloaded := newTestHistory(store.Store)
	assert.Equal(t, []string{"id-1", "id-2"}, ids(reloaded.Load(ctx)))

	store.setErr = nil
	log = h.Append(ctx, result(4, 1, 1, "D"))

	assert.Equal(t, StateLoaded, h.State())
	assert.Equal(t, []string{"id-1", "id-2", "id-3", "id-4"}, ids(log))
	assert.Len(t, storedEntries(t, store), 4)
}

func TestHistoryStore_QuotaExceeded(t *testing.T) {
	mem := storage.NewMemoryStore()
	// two persisted entries fit in 300 bytes, three do not
	h := newTestHistory(storage.WithQuota(mem, 300))
	ctx := context.Background()
	h.Load(ctx)

	h.Append(ctx, result(1, 2, 1, "AB123"))
	h.Append(ctx, result(2, 2, 1, "AB123"))
	require.False(t, h.Degraded())

	log := h.Append(ctx, result(3, 2, 1, "AB123"))

	assert.Len(t, log, 3)
	assert.True(t, h.Degraded())
	assert.True(t, errors.Is(h.LastWarning(), storage.ErrQuotaExceeded))
	assert.Equal(t, []string{"id-1", "id-2"}, ids(newTestHistory(mem).Load(ctx)))
}

func TestHistoryStore_LoadCorruptRecord(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{not json`},
		{"object", `{"id": "a"}`},
		{"null", `null`},
		{"entry not object", `["x"]`},
		{"missing timestamp", `[{"id": "a", "cars": 1, "plates": 1, "plateTexts": []}]`},
		{"bad timestamp", `[{"id": "a", "timestamp": "yesterday", "cars": 1, "plates": 1}]`},
		{"missing id", `[{"timestamp": "2025-03-01T10:00:00.000Z", "cars": 1, "plates": 1}]`},
		{"negative cars", `[{"id": "a", "timestamp": "2025-03-01T10:00:00.000Z", "cars": -1, "plates": 1}]`},
		{"texts not array", `[{"id": "a", "timestamp": "2025-03-01T10:00:00.000Z", "cars": 1, "plates": 1, "plateTexts": "A"}]`},
		{"one bad entry", `[
			{"id": "a", "timestamp": "2025-03-01T10:00:00.000Z", "cars": 1, "plates": 1, "plateTexts": ["A"], "carBrands": []},
			{"id": "b", "timestamp": "2025-03-01T10:00:01.000Z", "cars": "x", "plates": 1, "plateTexts": [], "carBrands": []}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			require.NoError(t, store.Set(context.Background(), historyKey, []byte(tt.data)))
			h := newTestHistory(store)

			log := h.Load(context.Background())

			assert.Empty(t, log)
			assert.Equal(t, StateLoaded, h.State())
			w := drainWarning(t, h)
			assert.True(t, errors.Is(w, ErrCorruptPersistedState), w.Error())
		})
	}
}

func TestHistoryStore_LoadReadFailure(t *testing.T) {
	store := newFlakyStore()
	store.getErr = errors.New("permission denied")
	h := newTestHistory(store)

	log := h.Load(context.Background())

	assert.Empty(t, log)
	assert.True(t, h.Degraded())
	assert.True(t, errors.Is(drainWarning(t, h), ErrPersistenceFailure))
}

func TestHistoryStore_LoadLegacyRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	legacy := `[{"timestamp":"2024-11-02T08:15:30.123Z","cars":1,"plates":1,"plateTexts":["123-AB-45"],"id":1730535330123}]`
	require.NoError(t, store.Set(context.Background(), historyKey, []byte(legacy)))
	h := newTestHistory(store)

	log := h.Load(context.Background())

	require.Len(t, log, 1)
	assert.Equal(t, "1730535330123", log[0].ID)
	assert.Nil(t, log[0].CarBrands)
	assert.Equal(t, anpr.NoBrandsLabel, log[0].BrandsLine())
	assert.Equal(t, 123000000, log[0].Timestamp.Nanosecond())
}

func TestHistoryStore_LoadKeepsNewestWhenOverCapacity(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	big := NewHistoryStore(store, historyKey, 8, zerolog.Nop())
	big.Load(ctx)
	for i := 1; i <= 8; i++ {
		big.Append(ctx, result(i, 1, 0))
	}

	log := newTestHistory(store).Load(ctx)
	assert.Equal(t, []string{"id-4", "id-5", "id-6", "id-7", "id-8"}, ids(log))
}

func TestHistoryStore_AppendBeforeLoadKeepsPersistedHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestHistory(store)
	first.Load(ctx)
	first.Append(ctx, result(1, 1, 1, "A"))

	second := newTestHistory(store)
	log := second.Append(ctx, result(2, 1, 1, "B"))

	assert.Equal(t, []string{"id-1", "id-2"}, ids(log))
}

func TestHistoryStore_Clear(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)
	h.Append(ctx, result(1, 1, 1, "A"))

	h.Clear(ctx)
	h.Clear(ctx)

	assert.Empty(t, h.Entries())
	assert.Equal(t, StateLoaded, h.State())
	_, found, err := store.Get(ctx, historyKey)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, newTestHistory(store).Load(ctx))
}

func TestHistoryStore_ClearFailure(t *testing.T) {
	store := newFlakyStore()
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)
	h.Append(ctx, result(1, 1, 1, "A"))

	store.removeErr = errors.New("locked")
	h.Clear(ctx)

	assert.Empty(t, h.Entries())
	assert.True(t, h.Degraded())
	assert.True(t, errors.Is(h.LastWarning(), ErrPersistenceFailure))
}

func TestHistoryStore_WarningsNeverBlock(t *testing.T) {
	store := newFlakyStore()
	store.setErr = errors.New("quota")
	h := newTestHistory(store)
	ctx := context.Background()
	h.Load(ctx)

	for i := 1; i <= warningBuffer*2; i++ {
		h.Append(ctx, result(i, 1, 0))
	}

	assert.Len(t, h.Warnings(), warningBuffer)
	assert.Len(t, h.Entries(), DefaultCapacity)
	assert.Equal(t, warningBuffer*2, store.sets)
}

func TestHistoryStore_EntriesAreCopies(t *testing.T) {
	h := newTestHistory(storage.NewMemoryStore())
	ctx := context.Background()
	h.Load(ctx)
	h.Append(ctx, result(1, 1, 1, "A"))

	log := h.Entries()
	log[0].ID = "mutated"

	got, ok := h.Entry("id-1")
	assert.True(t, ok)
	assert.Equal(t, "id-1", got.ID)

	_, ok = h.Entry("mutated")
	assert.False(t, ok)
}

func TestHistoryStore_Summary(t *testing.T) {
	h := newTestHistory(storage.NewMemoryStore())
	ctx := context.Background()
	h.Load(ctx)

	assert.Equal(t, anpr.Summary{}, h.Summary())

	h.Append(ctx, result(1, 2, 1, "AB123"))
	h.Append(ctx, result(2, 1, 1, "CD456"))

	assert.Equal(t, anpr.Summary{
		TotalAnalyses:        2,
		TotalVehicles:        3,
		TotalPlates:          2,
		TotalTextsRecognized: 2,
	}, h.Summary())
}

func TestHistoryState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "degraded_memory_only", StateDegraded.String())
}

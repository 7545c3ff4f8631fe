package service

import (
	"context"
	"fmt"
	"time"

	"anpr-client/internal/domain/anpr"
	"anpr-client/internal/storage"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// newTestNormalizer hands out id-1, id-2, ... one second apart.
func newTestNormalizer() *ResultNormalizer {
	n := 0
	return &ResultNormalizer{
		now: func() time.Time {
			return baseTime.Add(time.Duration(n) * time.Second)
		},
		newID: func() (string, error) {
			n++
			return fmt.Sprintf("id-%d", n), nil
		},
	}
}

func result(i, cars, plates int, texts ...string) anpr.DetectionResult {
	return anpr.DetectionResult{
		ID:             fmt.Sprintf("id-%d", i),
		Timestamp:      baseTime.Add(time.Duration(i) * time.Second),
		VehicleCount:   cars,
		PlateCount:     plates,
		PlateTexts:     texts,
		CarBrands:      []string{"Peugeot 208"},
		HasImage:       true,
		AnnotatedImage: fmt.Sprintf("annotated-%d", i),
		PlateImages:    []string{"thumb"},
	}
}

// flakyStore fails the selected operations while the matching error is set.
type flakyStore struct {
	storage.Store
	getErr    error
	setErr    error
	removeErr error
	sets      int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: storage.NewMemoryStore()}
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, key, value)
}

func (s *flakyStore) Remove(ctx context.Context, key string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.Store.Remove(ctx, key)
}

func ids(log anpr.HistoryLog) []string {
	out := make([]string, 0, len(log))
	for _, r := range log {
		out = append(out, r.ID)
	}
	return out
}

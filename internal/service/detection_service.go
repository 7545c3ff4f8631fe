package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"anpr-client/internal/domain/anpr"
	"anpr-client/internal/utils"
)

// Detector uploads an image to the detection service and returns its raw
// response body.
type Detector interface {
	Detect(ctx context.Context, filename string, image io.Reader) ([]byte, error)
}

// Outcome is everything the presentation layer needs after one detection.
type Outcome struct {
	Result   anpr.DetectionResult `json:"result"`
	History  anpr.HistoryLog      `json:"history"`
	Summary  anpr.Summary         `json:"summary"`
	Degraded bool                 `json:"degraded"`
	Warning  string               `json:"warning,omitempty"`
}

// HistoryView is the read side of the history for display.
type HistoryView struct {
	Entries  anpr.HistoryLog `json:"entries"`
	Summary  anpr.Summary    `json:"summary"`
	Degraded bool            `json:"degraded"`
}

// DetectionService is the only writer of the history.
type DetectionService struct {
	detector   Detector
	normalizer *ResultNormalizer
	history    *HistoryStore
	log        zerolog.Logger
}

func NewDetectionService(detector Detector, normalizer *ResultNormalizer, history *HistoryStore, log zerolog.Logger) *DetectionService {
	return &DetectionService{
		detector:   detector,
		normalizer: normalizer,
		history:    history,
		log:        log,
	}
}

// Analyze sends image to the detector and records the normalized result.
// A failed or malformed detection leaves the history untouched.
func (s *DetectionService) Analyze(ctx context.Context, filename string, image io.Reader) (*Outcome, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if image == nil {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	if s.detector == nil {
		return nil, fmt.Errorf("%w: detector is not configured", ErrDetectionFailed)
	}

	raw, err := s.detector.Detect(ctx, filename, image)
	if err != nil {
		s.log.Error().Err(err).Str("file", filename).Msg("detection request failed")
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	return s.Ingest(ctx, raw)
}

// Ingest records an already completed detection response.
func (s *DetectionService) Ingest(ctx context.Context, raw []byte) (*Outcome, error) {
	result, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.log.Warn().Err(err).Int("response_bytes", len(raw)).Msg("rejected detection response")
		return nil, err
	}

	history := s.history.Append(ctx, *result)

	s.log.Info().
		Str("result_id", result.ID).
		Int("cars", result.VehicleCount).
		Int("plates", result.PlateCount).
		Strs("plate_texts", result.PlateTexts).
		Int("history_len", len(history)).
		Msg("recorded detection result")

	out := &Outcome{
		Result:   *result,
		History:  history,
		Summary:  anpr.SummaryStatistics(history),
		Degraded: s.history.Degraded(),
	}
	if out.Degraded {
		if w := s.history.LastWarning(); w != nil {
			out.Warning = w.Error()
		}
	}
	return out, nil
}

// History returns the current history. A non-empty plateQuery keeps only
// entries with a plate text matching it after normalization; the summary
// always covers the whole retained window.
func (s *DetectionService) History(plateQuery string) (*HistoryView, error) {
	entries := s.history.Entries()

	if strings.TrimSpace(plateQuery) != "" {
		normalized := utils.NormalizePlate(plateQuery)
		if normalized == "" {
			return nil, fmt.Errorf("%w: plate query cannot be empty after normalization", ErrInvalidInput)
		}
		filtered := make(anpr.HistoryLog, 0, len(entries))
		for _, r := range entries {
			if containsPlate(r.PlateTexts, normalized) {
				filtered = append(filtered, r)
			}
		}
		entries = filtered
	}

	return &HistoryView{
		Entries:  entries,
		Summary:  s.history.Summary(),
		Degraded: s.history.Degraded(),
	}, nil
}

func containsPlate(texts []string, normalized string) bool {
	for _, t := range texts {
		if strings.Contains(utils.NormalizePlate(t), normalized) {
			return true
		}
	}
	return false
}

func (s *DetectionService) Entry(id string) (*anpr.DetectionResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	r, ok := s.history.Entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: no history entry %s", ErrNotFound, id)
	}
	return &r, nil
}

func (s *DetectionService) Summary() anpr.Summary {
	return s.history.Summary()
}

func (s *DetectionService) Degraded() bool {
	return s.history.Degraded()
}

// Clear empties the history. The returned error is only a report: memory
// is cleared regardless.
func (s *DetectionService) Clear(ctx context.Context) error {
	s.history.Clear(ctx)
	if s.history.Degraded() {
		if w := s.history.LastWarning(); w != nil {
			return w
		}
		return errors.New("history could not be removed from storage")
	}
	return nil
}

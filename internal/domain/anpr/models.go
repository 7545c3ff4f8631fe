package anpr

import (
	"time"
)

// TimestampLayout is ISO-8601 with millisecond precision, matching what
// browsers produce for Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DetectionResponse is the body returned by the detection service's /detect
// endpoint. It is only used to build requests in tests and tooling; incoming
// bodies go through the normalizer, which does not trust this shape.
type DetectionResponse struct {
	Image       string   `json:"image"`
	Cars        int      `json:"cars"`
	Plates      int      `json:"plates"`
	PlateTexts  []string `json:"plate_texts"`
	PlateImages []string `json:"plate_images"`
	CarBrands   []string `json:"car_brands"`
}

// DetectionResult is one normalized detection event.
// AnnotatedImage and PlateImages are kept in memory for the current session
// only and never reach storage.
type DetectionResult struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	VehicleCount   int       `json:"cars"`
	PlateCount     int       `json:"plates"`
	PlateTexts     []string  `json:"plateTexts"`
	CarBrands      []string  `json:"carBrands"`
	HasImage       bool      `json:"hasImage"`
	AnnotatedImage string    `json:"image,omitempty"`
	PlateImages    []string  `json:"plateImages,omitempty"`
}

// HistoryLog is the ordered, capacity-bounded list of past results.
// Index 0 is the oldest entry.
type HistoryLog []DetectionResult

// StoredResult is the persisted form of a DetectionResult.
type StoredResult struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Cars       int      `json:"cars"`
	Plates     int      `json:"plates"`
	PlateTexts []string `json:"plateTexts"`
	CarBrands  []string `json:"carBrands"`
}

// Summary is a window statistic over the retained history, not a lifetime
// counter: evicted entries no longer contribute.
type Summary struct {
	TotalAnalyses        int `json:"totalAnalyses"`
	TotalVehicles        int `json:"totalVehicles"`
	TotalPlates          int `json:"totalPlates"`
	TotalTextsRecognized int `json:"totalTextsRecognized"`
}

// PersistView projects a log onto its storage form, dropping every image
// payload. Nil text slices become empty so the stored JSON always carries arrays.
func PersistView(log HistoryLog) []StoredResult {
	stored := make([]StoredResult, 0, len(log))
	for _, r := range log {
		stored = append(stored, StoredResult{
			ID:         r.ID,
			Timestamp:  r.Timestamp.UTC().Format(TimestampLayout),
			Cars:       r.VehicleCount,
			Plates:     r.PlateCount,
			PlateTexts: nonNil(r.PlateTexts),
			CarBrands:  nonNil(r.CarBrands),
		})
	}
	return stored
}

// FromStored rebuilds a result from its persisted form. Images are gone for
// good once a result has been stored. CarBrands stays nil when the record
// predates brand detection.
func FromStored(s StoredResult, ts time.Time) DetectionResult {
	return DetectionResult{
		ID:           s.ID,
		Timestamp:    ts,
		VehicleCount: s.Cars,
		PlateCount:   s.Plates,
		PlateTexts:   nonNil(s.PlateTexts),
		CarBrands:    s.CarBrands,
	}
}

// SummaryStatistics folds the log into window totals.
func SummaryStatistics(log HistoryLog) Summary {
	var s Summary
	for _, r := range log {
		s.TotalAnalyses++
		s.TotalVehicles += r.VehicleCount
		s.TotalPlates += r.PlateCount
		s.TotalTextsRecognized += len(r.PlateTexts)
	}
	return s
}

// NewestFirst returns a copy of the log in display order.
func (l HistoryLog) NewestFirst() HistoryLog {
	out := make(HistoryLog, len(l))
	for i, r := range l {
		out[len(l)-1-i] = r
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

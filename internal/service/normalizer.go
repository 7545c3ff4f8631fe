package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"anpr-client/internal/domain/anpr"
)

// Fields of the detection service's response body.
const (
	fieldImage       = "image"
	fieldCars        = "cars"
	fieldPlates      = "plates"
	fieldPlateTexts  = "plate_texts"
	fieldPlateImages = "plate_images"
	fieldCarBrands   = "car_brands"
)

// ResultNormalizer turns raw detection responses into DetectionResults.
// It never keeps state between calls; every result gets a fresh id and
// timestamp.
type ResultNormalizer struct {
	now   func() time.Time
	newID func() (string, error)
}

func NewResultNormalizer() *ResultNormalizer {
	return &ResultNormalizer{
		now:   time.Now,
		newID: newResultID,
	}
}

// UUIDv7 ids sort by creation time and are monotonic within the process.
func newResultID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Normalize decodes a JSON response body and normalizes it.
func (n *ResultNormalizer) Normalize(raw []byte) (*anpr.DetectionResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after response object", ErrMalformedResponse)
	}
	return n.NormalizeValue(v)
}

// NormalizeValue normalizes an already decoded response. The image payloads
// are carried as-is and never decoded.
func (n *ResultNormalizer) NormalizeValue(raw any) (*anpr.DetectionResult, error) {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrMalformedResponse, describe(raw))
	}

	cars, err := requiredCount(obj, fieldCars)
	if err != nil {
		return nil, err
	}
	plates, err := requiredCount(obj, fieldPlates)
	if err != nil {
		return nil, err
	}

	plateTexts, err := optionalStrings(obj, fieldPlateTexts)
	if err != nil {
		return nil, err
	}
	carBrands, err := optionalStrings(obj, fieldCarBrands)
	if err != nil {
		return nil, err
	}
	plateImages, err := optionalStrings(obj, fieldPlateImages)
	if err != nil {
		return nil, err
	}

	image, err := optionalImage(obj)
	if err != nil {
		return nil, err
	}

	id, err := n.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate result id: %w", err)
	}

	return &anpr.DetectionResult{
		ID:             id,
		Timestamp:      n.now().UTC().Truncate(time.Millisecond),
		VehicleCount:   cars,
		PlateCount:     plates,
		PlateTexts:     plateTexts,
		CarBrands:      carBrands,
		HasImage:       image != "",
		AnnotatedImage: image,
		PlateImages:    plateImages,
	}, nil
}

func requiredCount(obj map[string]any, field string) (int, error) {
	v, present := obj[field]
	if !present || v == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformedResponse, field)
	}
	count, ok := toCount(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrMalformedResponse, field, v)
	}
	return count, nil
}

// toCount accepts integral JSON numbers and decimal strings.
func toCount(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return intFromInt64(i)
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return intFromFloat(f)
	case float64:
		return intFromFloat(x)
	case int:
		return intFromInt64(int64(x))
	case int64:
		return intFromInt64(x)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return intFromInt64(i)
	default:
		return 0, false
	}
}

func intFromInt64(i int64) (int, bool) {
	if i < 0 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}

func intFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// optionalStrings treats a missing or null field as an empty sequence.
func optionalStrings(obj map[string]any, field string) ([]string, error) {
	v, present := obj[field]
	if !present || v == nil {
		return []string{}, nil
	}
	out, err := toStrings(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %v", ErrMalformedResponse, field, err)
	}
	return out, nil
}

// toStrings converts a decoded JSON array of strings. Null elements become
// empty strings, the marker for an unreadable plate.
func toStrings(v any) ([]string, error) {
	switch items := v.(type) {
	case []string:
		return append([]string{}, items...), nil
	case []any:
		out := make([]string, 0, len(items))
		for i, item := range items {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case nil:
				out = append(out, "")
			default:
				return nil, fmt.Errorf("element %d must be a string, got %s", i, describe(item))
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be an array, got %s", describe(v))
	}
}

func optionalImage(obj map[string]any) (string, error) {
	v, present := obj[fieldImage]
	if !present || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be an encoded string, got %s", ErrMalformedResponse, fieldImage, describe(v))
	}
	return s, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

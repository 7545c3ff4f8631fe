package anpr

import "strings"

const (
	UnknownBrand  = "Unknown"
	NoTextLabel   = "No text recognized"
	NoTextsLabel  = "None"
	NoBrandsLabel = "N/A"
	listSeparator = ", "
)

// BrandLabel returns the label shown for one detected vehicle.
func BrandLabel(brand string) string {
	if strings.TrimSpace(brand) == "" {
		return UnknownBrand
	}
	return brand
}

// PlateTextLabel returns the label shown for one detected plate.
func PlateTextLabel(text string) string {
	if strings.TrimSpace(text) == "" {
		return NoTextLabel
	}
	return text
}

// BrandsLine joins brands for a history row.
func (r DetectionResult) BrandsLine() string {
	if r.CarBrands == nil {
		return NoBrandsLabel
	}
	return strings.Join(r.CarBrands, listSeparator)
}

// TextsLine joins plate texts for a history row.
func (r DetectionResult) TextsLine() string {
	line := strings.Join(r.PlateTexts, listSeparator)
	if line == "" {
		return NoTextsLabel
	}
	return line
}

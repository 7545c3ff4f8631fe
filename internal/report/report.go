// Package report renders history for the terminal the same way the browser
// view does: newest first, with placeholders for unreadable plates and
// unknown brands.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"anpr-client/internal/domain/anpr"
	"anpr-client/internal/service"
)

const timeLayout = "2006-01-02 15:04:05"

func Summary(w io.Writer, s anpr.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total analyses:\t%d\n", s.TotalAnalyses)
	fmt.Fprintf(tw, "Total cars detected:\t%d\n", s.TotalVehicles)
	fmt.Fprintf(tw, "Total plates detected:\t%d\n", s.TotalPlates)
	fmt.Fprintf(tw, "Total texts recognized:\t%d\n", s.TotalTextsRecognized)
	tw.Flush()
}

// History prints entries newest first.
func History(w io.Writer, log anpr.HistoryLog) {
	if len(log) == 0 {
		fmt.Fprintln(w, "No analyses saved yet.")
		return
	}
	for i, r := range log.NewestFirst() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		Entry(w, r)
	}
}

func Entry(w io.Writer, r anpr.DetectionResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Date:\t%s\n", r.Timestamp.In(time.Local).Format(timeLayout))
	fmt.Fprintf(tw, "Cars:\t%d\n", r.VehicleCount)
	fmt.Fprintf(tw, "Brands:\t%s\n", r.BrandsLine())
	fmt.Fprintf(tw, "Plates:\t%d\n", r.PlateCount)
	fmt.Fprintf(tw, "Texts:\t%s\n", r.TextsLine())
	tw.Flush()
}

// Outcome prints a fresh detection with its per-item lists.
func Outcome(w io.Writer, o *service.Outcome) {
	r := o.Result
	fmt.Fprintf(w, "Vehicles detected: %d\n", r.VehicleCount)
	fmt.Fprintf(w, "Plates detected: %d\n", r.PlateCount)

	if len(r.CarBrands) > 0 {
		fmt.Fprintln(w, "Detected car brands:")
		for _, b := range r.CarBrands {
			fmt.Fprintf(w, "  - %s\n", anpr.BrandLabel(b))
		}
	}
	if len(r.PlateTexts) > 0 {
		fmt.Fprintln(w, "Recognized plate texts:")
		for _, t := range r.PlateTexts {
			fmt.Fprintf(w, "  - %s\n", anpr.PlateTextLabel(t))
		}
	}
	if len(r.PlateImages) > 0 {
		fmt.Fprintf(w, "Plate thumbnails: %d\n", len(r.PlateImages))
	}

	fmt.Fprintln(w)
	Summary(w, o.Summary)

	if o.Degraded {
		fmt.Fprintf(w, "\nwarning: history kept in memory only: %s\n", o.Warning)
	}
}

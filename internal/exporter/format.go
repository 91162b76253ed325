package exporter

import (
	"fmt"
	"time"
)

// dateLayout is the output format for every date column. Inputs arrive in
// several layouts; outputs use exactly one.
const dateLayout = "2006-01-02"

// formatFloat formats a float64 value for CSV output with exactly 2
// decimal places, so 13.4 always appears as 13.40.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// Cell helpers render optional fields: nil becomes the empty cell, never
// a zero. The distinction survives the round trip to CSV.

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func boolCell(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "true"
	}
	return "false"
}

func dateCell(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(dateLayout)
}

func stringCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

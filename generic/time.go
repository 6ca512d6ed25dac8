package generic

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIMESTAMPS - Sheet serialization and batch parsing
// =============================================================================

// TimestampLayout is the serialization format used in the tracking sheet.
const TimestampLayout = "2006-01-02 15:04:05"

// parseLayouts are tried in order for textual timestamps in a batch.
var parseLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006",
	"1/2/06 15:04",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
}

// excelEpoch is day zero of the 1900 date system (accounting for the
// fictitious 1900-02-29 that Excel counts).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var secondsPerDay = decimal.NewFromInt(86400)

// FormatTimestamp renders t in the sheet layout. The zero time renders empty.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a batch cell as wall-clock time in loc.
//
// Accepted forms are the textual layouts above and Excel serial day numbers
// ("45678.5" = noon on that day), which xlsx exports produce for unformatted
// date cells. Serial fractions go through decimal so that 0.1-day steps land
// on exact seconds.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range parseLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.In(loc), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	if t, ok := parseExcelSerial(raw, loc); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func parseExcelSerial(raw string, loc *time.Location) (time.Time, bool) {
	serial, err := decimal.NewFromString(raw)
	if err != nil || serial.IsNegative() {
		return time.Time{}, false
	}
	// Serials below 61 fall before the phantom leap day; no leave export
	// reaches back to 1900, so treat them as invalid.
	if serial.LessThan(decimal.NewFromInt(61)) {
		return time.Time{}, false
	}
	days := serial.Floor()
	seconds := serial.Sub(days).Mul(secondsPerDay).Round(0)
	utc := excelEpoch.AddDate(0, 0, int(days.IntPart())).Add(time.Duration(seconds.IntPart()) * time.Second)
	return time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), utc.Minute(), utc.Second(), 0, loc), true
}

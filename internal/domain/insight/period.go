package insight

import (
	"time"

	"github.com/retail/backend/internal/domain/shared"
)

// Granularity is the time-grouping unit for trend reports.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity validates a caller-supplied granularity tag.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return Granularity(s), nil
	default:
		return "", shared.NewDomainError("INVALID_INPUT", "granularity must be one of day, week, month, quarter, year")
	}
}

// PeriodKey identifies one time bucket. Only the sub-keys belonging to the
// bucket's granularity are set; absent fields are omitted from output.
type PeriodKey struct {
	Year    int  `json:"year"`
	Quarter *int `json:"quarter,omitempty"`
	Month   *int `json:"month,omitempty"`
	Week    *int `json:"week,omitempty"`
	Day     *int `json:"day,omitempty"`
}

// BucketOf maps a date onto the period key of the given granularity.
// Weeks use ISO numbering, so a week key may pair with the ISO year rather
// than the calendar year; the resulting discontinuity at year boundaries is
// accepted behavior.
func BucketOf(g Granularity, t time.Time) PeriodKey {
	switch g {
	case GranularityDay:
		day := t.Day()
		month := int(t.Month())
		return PeriodKey{Year: t.Year(), Month: &month, Day: &day}
	case GranularityWeek:
		year, week := t.ISOWeek()
		return PeriodKey{Year: year, Week: &week}
	case GranularityMonth:
		month := int(t.Month())
		return PeriodKey{Year: t.Year(), Month: &month}
	case GranularityQuarter:
		quarter := (int(t.Month()) + 2) / 3
		return PeriodKey{Year: t.Year(), Quarter: &quarter}
	default:
		return PeriodKey{Year: t.Year()}
	}
}

// Compare orders two period keys chronologically: year first, then the
// coarsest-to-finest sub-keys both sides carry. Returns -1, 0 or 1.
func (k PeriodKey) Compare(other PeriodKey) int {
	if c := compareInt(k.Year, other.Year); c != 0 {
		return c
	}
	if c := comparePtr(k.Quarter, other.Quarter); c != 0 {
		return c
	}
	if c := comparePtr(k.Month, other.Month); c != 0 {
		return c
	}
	if c := comparePtr(k.Week, other.Week); c != 0 {
		return c
	}
	return comparePtr(k.Day, other.Day)
}

// Equal reports whether two keys identify the same bucket.
func (k PeriodKey) Equal(other PeriodKey) bool {
	return k.Compare(other) == 0
}

// periodIndex is the comparable form of a PeriodKey, usable as a map key.
// Pointer sub-keys collapse to -1 when absent.
type periodIndex struct {
	year    int
	quarter int
	month   int
	week    int
	day     int
}

func (k PeriodKey) index() periodIndex {
	return periodIndex{
		year:    k.Year,
		quarter: derefOr(k.Quarter, -1),
		month:   derefOr(k.Month, -1),
		week:    derefOr(k.Week, -1),
		day:     derefOr(k.Day, -1),
	}
}

func derefOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func comparePtr(a, b *int) int {
	if a == nil || b == nil {
		return 0
	}
	return compareInt(*a, *b)
}

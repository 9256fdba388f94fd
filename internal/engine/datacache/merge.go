package datacache

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
)

func compareRows(a, b domain.Row) int {
	if c := compareValue(a.MinTime, b.MinTime); c != 0 {
		return c
	}
	return compareValue(a.MaxTime, b.MaxTime)
}

func compareValue(a, b domain.Value) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Decimal.Cmp(b.Decimal)
}

// bisectLeft returns the first index whose min-time is not below needle.
func bisectLeft(rows []domain.Row, needle decimal.Decimal) int {
	return sort.Search(len(rows), func(i int) bool {
		m := rows[i].MinTime
		return !m.Valid || !m.Decimal.LessThan(needle)
	})
}

// bisectRange locates the rows whose min-time falls in span.
func bisectRange(rows []domain.Row, span domain.Range) (int, int) {
	l, r := 0, len(rows)
	if span.Start.Valid {
		l = bisectLeft(rows, span.Start.Decimal)
	}
	if span.End.Valid {
		r = bisectLeft(rows, span.End.Decimal)
	}
	if l < r {
		return l, r
	}
	return 0, 0
}

// within reports whether the row starts inside span.
func within(row domain.Row, span domain.Range) bool {
	if !row.MinTime.Valid {
		return false
	}
	if span.Start.Valid && row.MinTime.Decimal.LessThan(span.Start.Decimal) {
		return false
	}
	if span.End.Valid && !row.MinTime.Decimal.LessThan(span.End.Decimal) {
		return false
	}
	return true
}

func filterRows(rows []domain.Row, span domain.Range) []domain.Row {
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if within(row, span) {
			out = append(out, row)
		}
	}
	return out
}

// mergeRows replaces the rows of orig that start inside span with rows and
// returns a new sorted buffer. orig is not modified.
func mergeRows(orig, rows []domain.Row, span domain.Range) []domain.Row {
	l, r := bisectRange(orig, span)
	out := make([]domain.Row, 0, len(orig)-(r-l)+len(rows))
	out = append(out, orig[:l]...)
	out = append(out, rows...)
	out = append(out, orig[r:]...)
	slices.SortStableFunc(out, compareRows)
	return out
}

// overlaps reports whether the row's time span touches window.
func overlaps(row domain.Row, window domain.Range) bool {
	lo, hi := row.MinTime, row.MaxTime
	if lo.Valid && window.End.Valid && lo.Decimal.GreaterThan(window.End.Decimal) {
		return false
	}
	if hi.Valid && window.Start.Valid && hi.Decimal.LessThan(window.Start.Decimal) {
		return false
	}
	return true
}

func purgeRows(rows []domain.Row, window domain.Range) []domain.Row {
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if overlaps(row, window) {
			out = append(out, row)
		}
	}
	return out
}

// union spans every range; any open side leaves the union open on that side.
func union(spans []domain.Range) (domain.Range, bool) {
	if len(spans) == 0 {
		return domain.Range{}, false
	}
	out := spans[0]
	for _, s := range spans[1:] {
		if !out.Start.Valid || !s.Start.Valid {
			out.Start = domain.Null
		} else if s.Start.Decimal.LessThan(out.Start.Decimal) {
			out.Start = s.Start
		}
		if !out.End.Valid || !s.End.Valid {
			out.End = domain.Null
		} else if s.End.Decimal.GreaterThan(out.End.Decimal) {
			out.End = s.End
		}
	}
	return out, true
}

func fingerprint(rows []domain.Row) uint64 {
	h := xxhash.New()
	for _, row := range rows {
		for _, k := range slices.Sorted(maps.Keys(row.Time)) {
			_, _ = fmt.Fprintf(h, "t:%s=%s;", k, row.Time[k].String())
		}
		for _, k := range slices.Sorted(maps.Keys(row.Value)) {
			v := row.Value[k]
			_, _ = fmt.Fprintf(h, "v:%s=%t:%s;", k, v.Valid, v.Decimal.String())
		}
		for _, k := range slices.Sorted(maps.Keys(row.Data)) {
			_, _ = fmt.Fprintf(h, "d:%s=%v;", k, row.Data[k])
		}
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

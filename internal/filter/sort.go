package filter

import (
	"fmt"
	"sort"
	"strings"

	"schoolbridge/pkg/types"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortState is the data explorer's current sort column and direction.
type SortState struct {
	Column    string    `form:"sort"`
	Direction Direction `form:"dir"`
}

// Toggle flips the direction when column is already the sort column and
// otherwise starts sorting by column ascending.
func (s SortState) Toggle(column string) SortState {
	if s.Column == column && s.Direction != Descending {
		return SortState{Column: column, Direction: Descending}
	}
	return SortState{Column: column, Direction: Ascending}
}

// SortRows returns a sorted copy of rows. Missing and nil values sort last
// in both directions. Strings compare case-insensitively and numbers
// numerically; numeric-looking strings stay strings.
func SortRows(rows []types.Row, state SortState) []types.Row {
	out := make([]types.Row, len(rows))
	copy(out, rows)

	if state.Column == "" {
		return out
	}

	desc := state.Direction == Descending
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i][state.Column], out[j][state.Column]

		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}

		c := compare(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})

	return out
}

func compare(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return strings.ToLower(fmt.Sprint(v))
}

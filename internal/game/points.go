package game

import (
	"fmt"
	"strconv"
	"strings"
)

// PointsSpec is either a fixed amount (Min == Max) or an inclusive
// random range.
type PointsSpec struct {
	Min int
	Max int
}

// Fixed reports whether this is a single amount rather than a range.
func (p PointsSpec) Fixed() bool { return p.Min == p.Max }

// ParsePointsSpec parses admin point input: either a single integer
// (negative allowed) or a range "N-M" with N <= M. Input starting with
// a minus sign is always treated as a single negative number, so
// negative ranges are not expressible.
func ParsePointsSpec(text string) (PointsSpec, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return PointsSpec{}, fmt.Errorf("empty points value")
	}

	if !strings.HasPrefix(text, "-") && strings.Contains(text, "-") {
		lo, hi, ok := strings.Cut(text, "-")
		if !ok {
			return PointsSpec{}, fmt.Errorf("invalid range %q", text)
		}
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return PointsSpec{}, fmt.Errorf("invalid range %q: %w", text, err)
		}
		max, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return PointsSpec{}, fmt.Errorf("invalid range %q: %w", text, err)
		}
		if min > max {
			return PointsSpec{}, fmt.Errorf("invalid range %q: lower bound above upper", text)
		}
		return PointsSpec{Min: min, Max: max}, nil
	}

	v, err := strconv.Atoi(text)
	if err != nil {
		return PointsSpec{}, fmt.Errorf("invalid points value %q: %w", text, err)
	}
	return PointsSpec{Min: v, Max: v}, nil
}

// Roll resolves a spec to a concrete amount, picking uniformly within
// the range for ranged specs.
func (s *Service) Roll(spec PointsSpec) int {
	if spec.Fixed() {
		return spec.Min
	}
	return spec.Min + s.intn(spec.Max-spec.Min+1)
}

package stats

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op identifies a comparison operator in a filter expression.
type Op string

const (
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpEqual        Op = "="
	OpNotEqual     Op = "!="
)

// Condition is a parsed filter expression: an operator applied against a
// numeric threshold. Equality and inequality compare formatted display
// strings so that "=1.2345" matches what the user sees; ordered operators
// compare raw numeric values.
type Condition struct {
	Op        Op
	Threshold float64
}

// FilterError reports a filter expression that could not be parsed.
type FilterError struct {
	Expression string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("invalid filter expression %q", e.Expression)
}

var conditionPatterns = []struct {
	op Op
	re *regexp.Regexp
}{
	{OpGreaterEqual, regexp.MustCompile(`^>=\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpLessEqual, regexp.MustCompile(`^<=\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpNotEqual, regexp.MustCompile(`^!=\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpGreater, regexp.MustCompile(`^>\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpLess, regexp.MustCompile(`^<\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpEqual, regexp.MustCompile(`^=\s*(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
	{OpEqual, regexp.MustCompile(`^(-?\d+\.?\d*(?:[eE][+-]?\d+)?)$`)},
}

// ParseCondition parses a filter expression such as ">= 3.5", "!=0" or a bare
// number (treated as equality). An expression that matches no pattern is an
// error rather than a silent pass-through.
func ParseCondition(expr string) (Condition, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Condition{}, FilterError{Expression: expr}
	}
	for _, p := range conditionPatterns {
		m := p.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		threshold, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Condition{}, FilterError{Expression: expr}
		}
		return Condition{Op: p.op, Threshold: threshold}, nil
	}
	return Condition{}, FilterError{Expression: expr}
}

// Matches reports whether a value satisfies the condition. The formatted
// argument is the value's display string; equality operators compare against
// the threshold formatted the same way.
func (c Condition) Matches(value float64, formatted string) bool {
	switch c.Op {
	case OpGreater:
		return value > c.Threshold
	case OpGreaterEqual:
		return value >= c.Threshold
	case OpLess:
		return value < c.Threshold
	case OpLessEqual:
		return value <= c.Threshold
	case OpEqual:
		return formatted == FormatSignificant(c.Threshold, DefaultSigFigs)
	case OpNotEqual:
		return formatted != FormatSignificant(c.Threshold, DefaultSigFigs)
	default:
		return false
	}
}

package stats

import (
	"errors"
	"testing"
)

func TestParseCondition(t *testing.T) {
	cases := []struct {
		expr      string
		op        Op
		threshold float64
	}{
		{">3.5", OpGreater, 3.5},
		{">= 10", OpGreaterEqual, 10},
		{"< -2", OpLess, -2},
		{"<=0.5", OpLessEqual, 0.5},
		{"=7", OpEqual, 7},
		{"!= 1.5", OpNotEqual, 1.5},
		{"42", OpEqual, 42},
		{" 1e3 ", OpEqual, 1000},
	}
	for _, tc := range cases {
		cond, err := ParseCondition(tc.expr)
		if err != nil {
			t.Fatalf("ParseCondition(%q): %v", tc.expr, err)
		}
		if cond.Op != tc.op {
			t.Errorf("%q: op = %q, want %q", tc.expr, cond.Op, tc.op)
		}
		if cond.Threshold != tc.threshold {
			t.Errorf("%q: threshold = %v, want %v", tc.expr, cond.Threshold, tc.threshold)
		}
	}
}

func TestParseConditionRejectsInvalid(t *testing.T) {
	for _, expr := range []string{"", "abc", ">>1", "= one", "> "} {
		_, err := ParseCondition(expr)
		if err == nil {
			t.Errorf("ParseCondition(%q): expected error", expr)
			continue
		}
		var fe FilterError
		if !errors.As(err, &fe) {
			t.Errorf("ParseCondition(%q): error %T, want FilterError", expr, err)
		}
	}
}

func TestConditionMatchesOrdered(t *testing.T) {
	cond, err := ParseCondition(">= 2.5")
	if err != nil {
		t.Fatal(err)
	}
	if !cond.Matches(2.5, FormatSignificant(2.5, DefaultSigFigs)) {
		t.Error("2.5 should satisfy >= 2.5")
	}
	if cond.Matches(2.4999, FormatSignificant(2.4999, DefaultSigFigs)) {
		t.Error("2.4999 should not satisfy >= 2.5")
	}
}

func TestConditionMatchesEqualityByDisplayString(t *testing.T) {
	cond, err := ParseCondition("=1.2346")
	if err != nil {
		t.Fatal(err)
	}
	// 1.23456 rounds to the same display string as the threshold.
	value := 1.23456
	if !cond.Matches(value, FormatSignificant(value, DefaultSigFigs)) {
		t.Error("value rounding to the threshold's display string should match")
	}

	ne, err := ParseCondition("!=1.2346")
	if err != nil {
		t.Fatal(err)
	}
	if ne.Matches(value, FormatSignificant(value, DefaultSigFigs)) {
		t.Error("inequality should reject a value that displays as the threshold")
	}
	other := 2.0
	if !ne.Matches(other, FormatSignificant(other, DefaultSigFigs)) {
		t.Error("inequality should accept a value displaying differently")
	}
}

func TestConditionEqualityIgnoresThresholdText(t *testing.T) {
	cond, err := ParseCondition("=7")
	if err != nil {
		t.Fatal(err)
	}
	// Only the formatted display string counts; the expression text "7" is
	// not an alternative spelling of the threshold.
	if cond.Matches(7, "7") {
		t.Error("unformatted display string should not match")
	}
	if !cond.Matches(7, FormatSignificant(7, DefaultSigFigs)) {
		t.Error("formatted display string should match")
	}

	ne, err := ParseCondition("!=7")
	if err != nil {
		t.Fatal(err)
	}
	if !ne.Matches(7, "7") {
		t.Error("inequality should not treat the expression text as a match")
	}
}

package validation

import (
	"testing"
	"time"
)

func TestRequired(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	if v["name"] != "required" {
		t.Errorf("expected required violation, got %v", v)
	}
	v = Violations{}
	Required("name", "ok", v)
	if !v.Empty() {
		t.Errorf("expected no violation, got %v", v)
	}
}

func TestRangeInt_Boundaries(t *testing.T) {
	for _, val := range []int{0, 100} {
		v := Violations{}
		RangeInt("progress", val, 0, 100, v)
		if !v.Empty() {
			t.Errorf("progress %d should be accepted at the boundary", val)
		}
	}
	for _, val := range []int{-1, 101} {
		v := Violations{}
		RangeInt("progress", val, 0, 100, v)
		if v["progress"] != "out_of_range" {
			t.Errorf("progress %d should be rejected", val)
		}
	}
}

func TestMaxLen(t *testing.T) {
	v := Violations{}
	MaxLen("name", string(make([]byte, 101)), 100, v)
	if v.Empty() {
		t.Error("expected violation for 101 chars")
	}
}

func TestOneOf(t *testing.T) {
	statuses := []string{"Planning", "Completed"}
	v := Violations{}
	OneOf("status", "Planning", statuses, v)
	if !v.Empty() {
		t.Errorf("valid enum value rejected: %v", v)
	}
	OneOf("status", "Archived", statuses, v)
	if v["status"] != "invalid_value" {
		t.Errorf("invalid enum value accepted: %v", v)
	}
}

func TestDate(t *testing.T) {
	v := Violations{}
	got := Date("due", "2026-03-01", v)
	if !v.Empty() || got.IsZero() {
		t.Errorf("date-only value should parse, got %v violations=%v", got, v)
	}
	got = Date("start", time.Now().Format(time.RFC3339), v)
	if !v.Empty() || got.IsZero() {
		t.Errorf("RFC3339 value should parse, violations=%v", v)
	}
	Date("bad", "01/02/2026", v)
	if v["bad"] != "invalid_date" {
		t.Errorf("expected invalid_date, got %v", v)
	}
}

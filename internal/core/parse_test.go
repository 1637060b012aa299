package core

import "testing"

func TestParseValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1200", 1200, true},
		{"12.34", 12.34, true},
		{"12,34", 12.34, true},
		{" 1300.51 ", 1300.51, true},
		{"-5", -5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for i, tc := range cases {
		got, ok := ParseValue(tc.in)
		if ok != tc.ok {
			t.Fatalf("case %d %q: ok = %v, want %v", i, tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("case %d %q: value = %v, want %v", i, tc.in, got, tc.want)
		}
	}
}

func TestParseMonthYear(t *testing.T) {
	if m := ParseMonth("5"); m != 5 {
		t.Fatalf("month = %d, want 5", m)
	}
	for _, bad := range []string{"", "0", "13", "x"} {
		if m := ParseMonth(bad); m != 0 {
			t.Fatalf("month %q = %d, want 0", bad, m)
		}
	}
	if y := ParseYear("2023"); y != 2023 {
		t.Fatalf("year = %d, want 2023", y)
	}
	for _, bad := range []string{"", "-1", "x"} {
		if y := ParseYear(bad); y != 0 {
			t.Fatalf("year %q = %d, want 0", bad, y)
		}
	}
}

func TestParseObservation(t *testing.T) {
	o := ParseObservation("5", "2023", "1300,51")
	if !o.Complete() {
		t.Fatalf("expected complete observation, got %+v", o)
	}
	if o.Value != 1300.51 {
		t.Fatalf("value = %v, want 1300.51", o.Value)
	}

	partial := ParseObservation("5", "2023", "")
	if partial.Complete() {
		t.Fatalf("expected incomplete observation")
	}
	if !partial.PeriodSet() {
		t.Fatalf("period should be set")
	}

	empty := ParseObservation("", "", "")
	if empty.PeriodSet() || empty.HasValue {
		t.Fatalf("expected untouched observation, got %+v", empty)
	}
	if empty.Period() != "-" {
		t.Fatalf("period label = %q, want -", empty.Period())
	}
}

package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"20000", 20000, true},
		{"20.000", 20000, true},
		{"1,250,000", 1250000, true},
		{"12.50", 12.5, true},
		{"12,5", 12.5, true},
		{"1.234,5", 1234.5, true},
		{"Rp 15.000", 15000, true},
		{" 250 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		20000:   "20000",
		1.5:     "1.5",
		0:       "0",
		1250000: "1250000",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

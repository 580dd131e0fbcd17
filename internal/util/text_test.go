package util

import "testing"

func TestNormalizePO(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"PO12345", "12345"},
		{"po 12345", "12345"},
		{"  PO0100  ", "0100"},
		{"12345", "12345"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizePO(tc.input); got != tc.want {
			t.Errorf("NormalizePO(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeItemCode(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"210-BMFF", "210-BMFF"},
		{"  abc123  ", "ABC123"},
		{"Item code: 706-12539", "706-12539"},
		{"ITEM CODE - 706-12539-ABC", "706-12539-ABC"},
		{"706-12539 (spare)", "706-12539"},
		{"A", "A"},
		{"", ""},
		{"--", "--"},
	}
	for _, tc := range cases {
		if got := NormalizeItemCode(tc.input); got != tc.want {
			t.Errorf("NormalizeItemCode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

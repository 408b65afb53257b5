package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"oscilloscope", "oscilloscope"},
		{"  thermal   chamber  ", "thermal chamber"},
		{"line\nbreaks\tand\ttabs", "line breaks and tabs"},
		{"GPU Rev.B", "GPU Rev.B"},
	}

	for _, tc := range cases {
		if got := TrimAndNormalize(tc.in); got != tc.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFacetValuePreservesCase(t *testing.T) {
	if got := NormalizeFacetValue("  Gen 3 "); got != "Gen 3" {
		t.Errorf("NormalizeFacetValue = %q, want %q", got, "Gen 3")
	}
}

func TestSanitizeSliceDedupesAndDropsEmpty(t *testing.T) {
	got := SanitizeSlice([]string{" a ", "b", "a", "  "}, TrimAndNormalize)
	want := []string{"a", "b"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

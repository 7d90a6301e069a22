package normalize

import "testing"

func TestBooleanQuery(t *testing.T) {
	cases := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"short token stays exact", []string{"jo", "smith"}, "jo smith*"},
		{"long tokens get wildcard", []string{"john", "smith"}, "john* smith*"},
		{"boundary at four chars", []string{"abc", "abcd"}, "abc abcd*"},
		{"order preserved", []string{"smith", "jo"}, "smith* jo"},
		{"empty tokens skipped", []string{"", "anna", ""}, "anna*"},
		{"no tokens", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BooleanQuery(tc.tokens); got != tc.want {
				t.Errorf("BooleanQuery(%v) = %q, want %q", tc.tokens, got, tc.want)
			}
		})
	}
}

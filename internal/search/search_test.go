package search

import (
	"reflect"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scan lens", "scan lens"},
		{"scan-lens!", "scan lens"},
		{"  f-theta (254mm)  ", "f theta 254mm"},
		{"코팅 렌즈", "코팅 렌즈"},
		{"@#$%", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("scan-lens f/theta")
	want := []string{"scan", "lens", "f", "theta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}

	if toks := Tokens("!!!"); len(toks) != 0 {
		t.Errorf("Tokens of pure punctuation = %v, want none", toks)
	}
}

func TestPrefixQuery(t *testing.T) {
	if got := PrefixQuery("scan lens"); got != "scan:* | lens:*" {
		t.Errorf("PrefixQuery = %q", got)
	}
	if got := PrefixQuery("단일"); got != "단일:*" {
		t.Errorf("PrefixQuery = %q", got)
	}

	// Terms that sanitize away must produce no query at all, never an empty
	// pattern that would match everything or nothing.
	if got := PrefixQuery(" (+) "); got != "" {
		t.Errorf("PrefixQuery of punctuation = %q, want empty", got)
	}
}

func TestSKUPattern(t *testing.T) {
	if got := SKUPattern("SL-254/F"); got != "%SL-254/F%" {
		t.Errorf("SKUPattern = %q", got)
	}
	if got := SKUPattern("100%_A"); got != `%100\%\_A%` {
		t.Errorf("SKUPattern escaping = %q", got)
	}
	if got := SKUPattern("   "); got != "" {
		t.Errorf("SKUPattern of blank = %q, want empty", got)
	}
}

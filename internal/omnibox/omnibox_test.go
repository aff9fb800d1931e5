package omnibox

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"lunar://settings":         InternalRoute,
		"LUNAR://new":              InternalRoute,
		"https://example.com":      FullURL,
		"http://a.b/c?d":           FullURL,
		"example.com":              BareDomain,
		"  example.com  ":          BareDomain,
		"2+2":                      MathExpr,
		"1.5 * (3 - 1)":            MathExpr,
		"√(9)":                     MathExpr,
		"42":                       SearchPhrase,
		"3.14":                     BareDomain,
		"how tall is everest":      SearchPhrase,
		"example .com with spaces": SearchPhrase,
		"":                         SearchPhrase,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Errorf("Classify(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	engine := "https://search.test/?q="
	cases := []struct {
		in    string
		want  string
		local bool
	}{
		{"lunar://settings", "/st", true},
		{"lunar://games", "/math", true},
		{"lunar://nowhere", "https://search.test/?q=lunar%3A%2F%2Fnowhere", false},
		{"example.com", "https://example.com", false},
		{"https://example.com/a", "https://example.com/a", false},
		{"cats and dogs", "https://search.test/?q=cats+and+dogs", false},
		{"2+2", "https://search.test/?q=2%2B2", false},
	}
	for _, tc := range cases {
		d := Normalize(tc.in, engine)
		if d.Address != tc.want || d.Local != tc.local {
			t.Errorf("Normalize(%q) = %q local=%v; want %q local=%v", tc.in, d.Address, d.Local, tc.want, tc.local)
		}
	}
	if d := Normalize("x y", ""); d.Address != DefaultEngine+"x+y" {
		t.Errorf("Normalize with default engine = %q", d.Address)
	}
}

func TestReverseRoute(t *testing.T) {
	for internal, path := range internalRoutes {
		got, ok := ReverseRoute(path)
		if !ok || got != internal {
			t.Errorf("ReverseRoute(%q) = %q, %v; want %q", path, got, ok, internal)
		}
		back, ok := Route(internal)
		if !ok || back != path {
			t.Errorf("Route(%q) = %q, %v; want %q", internal, back, ok, path)
		}
	}
	if _, ok := ReverseRoute("/v1/data/abc"); ok {
		t.Error("ReverseRoute(proxied path) = ok; want false")
	}
	if got, ok := ReverseRoute("/st?tab=about"); !ok || got != "lunar://settings" {
		t.Errorf("ReverseRoute with query = %q, %v", got, ok)
	}
}

func TestMatchRoutes(t *testing.T) {
	got := MatchRoutes("lunar://")
	want := []string{"lunar://apps", "lunar://games", "lunar://new", "lunar://settings"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MatchRoutes() mismatch (-want +got):\n%s", diff)
	}
	if got := MatchRoutes("lunar://se"); len(got) != 1 || got[0] != "lunar://settings" {
		t.Errorf("MatchRoutes(lunar://se) = %v", got)
	}
}

func TestEval(t *testing.T) {
	cases := map[string]string{
		"2+2":         "4",
		"2^10":        "1024",
		"1/4":         "0.25",
		"√(16)":       "4",
		"(1+2)*3 % 4": "1",
		"0.1+0.2":     "0.30000000000000004",
	}
	for in, want := range cases {
		got, ok := Eval(in)
		if !ok || got != want {
			t.Errorf("Eval(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestEvalRejects(t *testing.T) {
	for _, in := range []string{"1/0", "0/0", "2+", "42", "hello", "√9"} {
		if got, ok := Eval(in); ok {
			t.Errorf("Eval(%q) = %q, true; want false", in, got)
		}
	}
}

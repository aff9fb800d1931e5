// Package omnibox classifies address-bar input and turns it into a
// destination. Classification never fails: anything unroutable becomes a
// search query.
package omnibox

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Kind is the classification of raw address-bar input.
type Kind int

const (
	SearchPhrase Kind = iota
	InternalRoute
	FullURL
	BareDomain
	MathExpr
)

func (k Kind) String() string {
	switch k {
	case InternalRoute:
		return "internal_route"
	case FullURL:
		return "full_url"
	case BareDomain:
		return "bare_domain"
	case MathExpr:
		return "math_expr"
	default:
		return "search_phrase"
	}
}

const (
	InternalScheme = "lunar://"
	DefaultEngine  = "https://duckduckgo.com/?q="
	NewTabPath     = "/new"
)

// internalRoutes maps lunar:// addresses to the local pages serving them.
var internalRoutes = map[string]string{
	"lunar://settings": "/st",
	"lunar://new":      NewTabPath,
	"lunar://games":    "/math",
	"lunar://apps":     "/sci",
}

// RouteLabels names each internal route for suggestion lists.
var RouteLabels = map[string]string{
	"lunar://settings": "Settings",
	"lunar://new":      "New Page",
	"lunar://games":    "Games",
	"lunar://apps":     "Apps",
}

var (
	schemeRe   = regexp.MustCompile(`^https?://`)
	mathCharRe = regexp.MustCompile(`^[0-9+\-*/().%^√\s]+$`)
	numberRe   = regexp.MustCompile(`^[0-9.]+$`)
	operatorRe = regexp.MustCompile(`[+\-*/%^√()]`)
)

// Destination is normalized input ready for encoding.
type Destination struct {
	Kind    Kind
	Input   string
	Address string
	// Local is set for internal routes, which load without a codec.
	Local bool
}

// Classify inspects trimmed input. Math is checked before bare domains so
// that "1.5+2" is not mistaken for a host.
func Classify(input string) Kind {
	v := strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(strings.ToLower(v), InternalScheme):
		return InternalRoute
	case schemeRe.MatchString(v):
		return FullURL
	case IsMathExpr(v):
		return MathExpr
	case strings.Contains(v, ".") && !strings.ContainsAny(v, " \t\r\n"):
		return BareDomain
	default:
		return SearchPhrase
	}
}

// IsMathExpr reports input made only of digits and operators with at least
// one operator.
func IsMathExpr(input string) bool {
	v := strings.TrimSpace(input)
	return mathCharRe.MatchString(v) && !numberRe.MatchString(v) && operatorRe.MatchString(v)
}

// Normalize resolves input to a destination. Unknown lunar:// routes and
// math expressions fall back to the search engine.
func Normalize(input, engine string) Destination {
	if engine == "" {
		engine = DefaultEngine
	}
	v := strings.TrimSpace(input)
	d := Destination{Kind: Classify(v), Input: v}

	switch d.Kind {
	case InternalRoute:
		if path, ok := internalRoutes[strings.ToLower(v)]; ok {
			d.Address = path
			d.Local = true
			return d
		}
		d.Address = engine + url.QueryEscape(v)
	case FullURL:
		d.Address = v
	case BareDomain:
		d.Address = "https://" + v
	default:
		d.Address = engine + url.QueryEscape(v)
	}
	return d
}

// Route returns the local path for a lunar:// address.
func Route(internal string) (string, bool) {
	path, ok := internalRoutes[strings.ToLower(strings.TrimSpace(internal))]
	return path, ok
}

// ReverseRoute maps a local path back to its lunar:// address for display.
func ReverseRoute(path string) (string, bool) {
	p, _, _ := strings.Cut(path, "?")
	for k, v := range internalRoutes {
		if v == p {
			return k, true
		}
	}
	return "", false
}

// IsLocal reports whether path is one of the internal pages.
func IsLocal(path string) bool {
	_, ok := ReverseRoute(path)
	return ok
}

// MatchRoutes lists lunar:// addresses containing q, sorted.
func MatchRoutes(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []string
	for k := range internalRoutes {
		if strings.Contains(k, q) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

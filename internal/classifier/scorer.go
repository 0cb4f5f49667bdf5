package classifier

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"formscan/internal/domain"
)

// ScoreResult is the outcome of keyword scoring. Counts holds the number of
// distinct keywords found per profiled form type.
type ScoreResult struct {
	FormType domain.FormType
	Counts   map[domain.FormType]int
}

// Scorer counts keyword hits in extracted text. It is deterministic: the
// same text always produces the same result.
type Scorer struct {
	profile  *Profile
	keywords map[domain.FormType][]string
}

// NewScorer creates a Scorer for profile. Keywords are case folded once.
func NewScorer(profile *Profile) *Scorer {
	fold := cases.Fold()
	kw := make(map[domain.FormType][]string, len(profile.Forms))
	for ft, fp := range profile.Forms {
		for _, k := range fp.Keywords {
			k = strings.TrimSpace(fold.String(k))
			if k != "" {
				kw[ft] = append(kw[ft], k)
			}
		}
	}
	return &Scorer{profile: profile, keywords: kw}
}

// Score counts keyword hits per form type in text and picks the form with
// the highest count that meets its threshold. A tie between qualifying forms,
// or no qualifying form, yields Generic.
func (s *Scorer) Score(text string) ScoreResult {
	haystack := cases.Fold().String(text)

	counts := make(map[domain.FormType]int, len(s.keywords))
	for _, ft := range s.profile.formTypes() {
		n := 0
		for _, k := range s.keywords[ft] {
			if strings.Contains(haystack, k) {
				n++
			}
		}
		counts[ft] = n
	}

	best := domain.FormTypeGeneric
	bestCount := 0
	tied := false
	for _, ft := range s.profile.formTypes() {
		n := counts[ft]
		if n < s.profile.Forms[ft].MinMatches {
			continue
		}
		switch {
		case n > bestCount:
			best, bestCount, tied = ft, n, false
		case n == bestCount:
			tied = true
		}
	}
	if tied {
		best = domain.FormTypeGeneric
	}
	return ScoreResult{FormType: best, Counts: counts}
}

// Haystack collects every string value in a parsed extraction, recursively,
// in a stable order. Numbers and booleans are ignored.
func Haystack(v any) string {
	var parts []string
	collectStrings(v, &parts)
	return strings.Join(parts, "\n")
}

func collectStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], out)
		}
	case []any:
		for _, e := range t {
			collectStrings(e, out)
		}
	}
}

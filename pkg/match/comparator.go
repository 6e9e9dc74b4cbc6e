package match

import (
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Comparator scores the similarity of two field values in [0,1]. The matching
// core only depends on this contract; the metric itself is replaceable.
type Comparator interface {
	Compare(a, b string) float64
}

// DefaultComparator blends Jaro-Winkler with a normalized edit distance and
// keeps the higher of the two. Jaro-Winkler favors shared prefixes, which
// suits surnames; edit distance is more forgiving of single-character typos
// in document numbers.
type DefaultComparator struct{}

func NewComparator() DefaultComparator {
	return DefaultComparator{}
}

func (DefaultComparator) Compare(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	jw := JaroWinkler(a, b)

	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	lev := 1.0 - float64(dist)/float64(longest)

	if lev > jw {
		return lev
	}
	return jw
}

var stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims and removes diacritics so that "María" and
// "Maria" compare as the same token.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripper, s); err == nil {
		return out
	}
	return s
}

// DateLayout is the fixed calendar representation both sides of a comparison
// are formatted to before scoring.
const DateLayout = "2006-01-02"

func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// JaroWinkler computes standard Jaro-Winkler similarity in [0,1].
func JaroWinkler(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if s1 == "" || s2 == "" {
		return 0
	}

	matchDistance := max(len(s1), len(s2))/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	s1Matches := make([]bool, len(s1))
	s2Matches := make([]bool, len(s2))

	matches := 0
	transpositions := 0

	for i := range s1 {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, len(s2))
		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	k := 0
	for i := range s1 {
		if !s1Matches[i] {
			continue
		}
		for ; !s2Matches[k]; k++ {
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	transpositions /= 2

	jaro := (float64(matches)/float64(len(s1)) + float64(matches)/float64(len(s2)) + float64(matches-transpositions)/float64(matches)) / 3

	prefix := 0
	for i := 0; i < min(4, min(len(s1), len(s2))); i++ {
		if s1[i] == s2[i] {
			prefix++
		} else {
			break
		}
	}

	return jaro + float64(prefix)*0.1*(1-jaro)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package classify maps scraped hints to the article taxonomy and difficulty scale.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"ShadowNews/internal/domain"
)

type rule struct {
	category domain.Category
	expr     *regexp.Regexp
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{domain.CategoryBusinessPolitics, regexp.MustCompile(`\b(business|economy|economic|market|markets|trade|finance|financial|company|companies|politics|political|election|government|president|minister|parliament|congress|policy|tax)\b`)},
	{domain.CategoryScienceTechnology, regexp.MustCompile(`\b(science|scientist|scientists|technology|tech|research|researchers|space|nasa|climate|computer|robot|robots|digital|internet|ai|artificial intelligence|physics|chemistry)\b`)},
	{domain.CategoryHealthLifestyle, regexp.MustCompile(`\b(health|healthy|medical|medicine|doctor|doctors|hospital|disease|diet|food|fitness|exercise|sleep|wellness|lifestyle|mental)\b`)},
	{domain.CategoryCultureSociety, regexp.MustCompile(`\b(culture|cultural|society|social|art|arts|music|film|movie|education|school|language|history|entertainment|sport|sports|family|community)\b`)},
	{domain.CategoryTravelExperiences, regexp.MustCompile(`\b(travel|traveler|travellers|tourism|tourist|tourists|trip|journey|holiday|vacation|destination|hotel|flight|adventure)\b`)},
}

var (
	levelNumber = regexp.MustCompile(`\d+`)
	levelWords  = []struct {
		expr  *regexp.Regexp
		level int
	}{
		{regexp.MustCompile(`\bbeginn(ing|er)\b`), 3},
		{regexp.MustCompile(`\bintermediate\b`), 6},
		{regexp.MustCompile(`\badvanced\b`), 8},
	}
)

// Category returns the first category whose keywords appear in text.
func Category(text string) (domain.Category, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.expr.MatchString(lower) {
			return r.category, true
		}
	}
	return "", false
}

// CategoryOr is Category with a caller-supplied default.
func CategoryOr(text string, def domain.Category) domain.Category {
	if c, ok := Category(text); ok {
		return c
	}
	return def
}

// Level extracts a difficulty level from a label such as "Level 7" or "Intermediate".
// The result is always within [domain.MinLevel, domain.MaxLevel]; def is used when
// nothing usable is found.
func Level(text string, def int) int {
	lower := strings.ToLower(strings.TrimSpace(text))
	if token := levelNumber.FindString(lower); token != "" {
		if n, err := strconv.Atoi(token); err == nil && n > 0 {
			return domain.ClampLevel(n)
		}
	}
	for _, w := range levelWords {
		if w.expr.MatchString(lower) {
			return w.level
		}
	}
	return domain.ClampLevel(def)
}

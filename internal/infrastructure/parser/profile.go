package parser

import (
	"ShadowNews/internal/domain"
	"ShadowNews/internal/scanner"
)

// Profile is the data that drives HTMLScraper for one source.
type Profile struct {
	Source      domain.Source
	Attribution string
	BaseURL     string
	ListingURL  string

	// Listing strategies, most specific first.
	Listing []scanner.Strategy
	// Fallback filters every anchor when no strategy matched.
	Fallback    AnchorFallback
	MinTitleLen int

	LevelSelectors  []string
	LevelHints      []LevelHint
	DefaultLevel    int
	CategoryHints   []CategoryHint
	DefaultCategory domain.Category

	DetailTitle      []string
	DetailParagraphs []string
	DateSelectors    []string
	DetailLevel      []string
	DetailCategory   []string
}

// AnchorFallback accepts anchors whose href contains any fragment and whose
// title length falls inside [MinTitle, MaxTitle].
type AnchorFallback struct {
	URLContains []string
	MinTitle    int
	MaxTitle    int
}

// LevelHint maps a URL or label fragment to a fixed level.
type LevelHint struct {
	Fragment string
	Level    int
}

// CategoryHint maps a URL fragment to a category.
type CategoryHint struct {
	Fragment string
	Category domain.Category
}

const (
	defaultMinTitleLen = 10
	maxParagraphs      = 2
	minParagraphLen    = 20
)

// Profiles returns the built-in source table.
func Profiles() []Profile {
	return []Profile{BBCProfile(), VOAProfile(), EngooProfile()}
}

// BBCProfile scrapes the BBC News front page.
func BBCProfile() Profile {
	return Profile{
		Source:      domain.SourceBBC,
		Attribution: "BBC News",
		BaseURL:     "https://www.bbc.com",
		ListingURL:  "https://www.bbc.com/news",
		Listing: []scanner.Strategy{
			scanner.SelectorStrategy(`div[data-testid="edinburgh-card"] a[href*="/articles/"]`),
			scanner.SelectorStrategy(`a[data-testid="internal-link"][href*="/articles/"]`),
			scanner.SelectorStrategy(`a.gs-c-promo-heading`),
			scanner.SelectorStrategy(`a[href*="/news/articles/"]`),
		},
		Fallback:        AnchorFallback{URLContains: []string{"article"}, MinTitle: 10, MaxTitle: 200},
		MinTitleLen:     10,
		DefaultLevel:    6,
		DefaultCategory: domain.CategoryBusinessPolitics,
		CategoryHints: []CategoryHint{
			{"/business", domain.CategoryBusinessPolitics},
			{"/politics", domain.CategoryBusinessPolitics},
			{"/technology", domain.CategoryScienceTechnology},
			{"/science", domain.CategoryScienceTechnology},
			{"/health", domain.CategoryHealthLifestyle},
			{"/culture", domain.CategoryCultureSociety},
			{"/entertainment", domain.CategoryCultureSociety},
			{"/travel", domain.CategoryTravelExperiences},
		},
		DetailTitle:      []string{"h1#main-heading", "article h1", "h1"},
		DetailParagraphs: []string{`[data-component="text-block"] p`, "article p", "main p"},
		DateSelectors:    []string{"time[datetime]", `[data-testid="timestamp"]`},
		DetailCategory:   []string{`meta[property="article:section"]`},
	}
}

// VOAProfile scrapes VOA Learning English.
func VOAProfile() Profile {
	return Profile{
		Source:      domain.SourceVOA,
		Attribution: "VOA Learning English",
		BaseURL:     "https://learningenglish.voanews.com",
		ListingURL:  "https://learningenglish.voanews.com/z/3521",
		Listing: []scanner.Strategy{
			scanner.SelectorStrategy(`ul#articleItems li .media-block`),
			scanner.SelectorStrategy(`.media-block`),
			scanner.SelectorStrategy(`a[href^="/a/"]`),
		},
		Fallback:       AnchorFallback{URLContains: []string{"article", "/a/"}, MinTitle: 10, MaxTitle: 200},
		MinTitleLen:    5,
		LevelSelectors: []string{".media-block__category", ".category", `[class*="level"]`},
		LevelHints: []LevelHint{
			{"level-one", 3},
			{"beginning", 3},
			{"level-three", 8},
			{"advanced", 8},
		},
		DefaultLevel:    6,
		DefaultCategory: domain.CategoryCultureSociety,
		CategoryHints: []CategoryHint{
			{"/economics", domain.CategoryBusinessPolitics},
			{"/science-technology", domain.CategoryScienceTechnology},
			{"/health-lifestyle", domain.CategoryHealthLifestyle},
			{"/arts-culture", domain.CategoryCultureSociety},
			{"/travel", domain.CategoryTravelExperiences},
		},
		DetailTitle:      []string{"h1.title", "h1"},
		DetailParagraphs: []string{"#article-content .wsw p", ".wsw p", "article p", "p"},
		DateSelectors:    []string{"time[datetime]", ".published time", ".date"},
		DetailLevel:      []string{".category a", ".category"},
		DetailCategory:   []string{`meta[property="article:section"]`, ".category a"},
	}
}

// EngooProfile scrapes Engoo Daily News.
func EngooProfile() Profile {
	return Profile{
		Source:      domain.SourceEngoo,
		Attribution: "Engoo Daily News",
		BaseURL:     "https://engoo.com",
		ListingURL:  "https://engoo.com/app/daily-news",
		Listing: []scanner.Strategy{
			scanner.SelectorStrategy(`[data-testid="article-card"]`),
			scanner.SelectorStrategy(`a[href*="/app/daily-news/article/"]`),
			scanner.SelectorStrategy(`a[href*="/daily-news/article"]`),
		},
		Fallback:        AnchorFallback{URLContains: []string{"article"}, MinTitle: 10, MaxTitle: 200},
		MinTitleLen:     5,
		LevelSelectors:  []string{`[data-testid="level"]`, `[class*="level"]`, `[class*="Level"]`},
		DefaultLevel:    6,
		DefaultCategory: domain.CategoryCultureSociety,
		CategoryHints: []CategoryHint{
			{"business", domain.CategoryBusinessPolitics},
			{"politics", domain.CategoryBusinessPolitics},
			{"science", domain.CategoryScienceTechnology},
			{"health", domain.CategoryHealthLifestyle},
			{"travel", domain.CategoryTravelExperiences},
		},
		DetailTitle:      []string{"h1"},
		DetailParagraphs: []string{`[class*="ArticleBody"] p`, "article p", "main p"},
		DateSelectors:    []string{"time[datetime]", `[class*="date"]`},
		DetailLevel:      []string{`[data-testid="level"]`, `[class*="level"]`, `[class*="Level"]`},
		DetailCategory:   []string{`[data-testid="category"]`, `[class*="category"]`},
	}
}

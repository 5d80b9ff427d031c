package domain

import "time"

// Source identifies one of the scraped news providers.
type Source string

const (
	SourceBBC   Source = "bbc"
	SourceVOA   Source = "voa"
	SourceEngoo Source = "engoo"
)

// Valid reports whether s is one of the known providers.
func (s Source) Valid() bool {
	switch s {
	case SourceBBC, SourceVOA, SourceEngoo:
		return true
	}
	return false
}

// Category is the fixed topic taxonomy shown to learners.
type Category string

const (
	CategoryBusinessPolitics  Category = "Business & Politics"
	CategoryScienceTechnology Category = "Science & Technology"
	CategoryHealthLifestyle   Category = "Health & Lifestyle"
	CategoryCultureSociety    Category = "Culture & Society"
	CategoryTravelExperiences Category = "Travel & Experiences"
)

// Categories lists every category in inference priority order.
var Categories = []Category{
	CategoryBusinessPolitics,
	CategoryScienceTechnology,
	CategoryHealthLifestyle,
	CategoryCultureSociety,
	CategoryTravelExperiences,
}

// Valid reports whether c is part of the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

const (
	MinLevel = 1
	MaxLevel = 10
)

// ClampLevel forces a difficulty level into [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Article is the canonical persisted record.
type Article struct {
	ArticleID         string     `json:"articleId"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	Translation       *string    `json:"translation"`
	Category          Category   `json:"category"`
	Level             int        `json:"level"`
	PublishedDate     string     `json:"publishedDate"`
	Source            Source     `json:"source"`
	SourceURL         string     `json:"sourceUrl"`
	SourceAttribution string     `json:"sourceAttribution"`
	AudioURL          string     `json:"audioUrl,omitempty"`
	AudioCachedAt     *time.Time `json:"audioCachedAt,omitempty"`
	LocalAudioPath    string     `json:"localAudioPath,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ScrapedArticleSummary is a listing entry produced by a scraper; never persisted directly.
type ScrapedArticleSummary struct {
	Title             string
	URL               string
	Date              string
	Level             int
	Category          Category
	Excerpt           string
	Source            Source
	SourceAttribution string
}

// ArticleDetail is what a scraper extracts from a single article page.
type ArticleDetail struct {
	Title    string
	Content  string
	Date     string
	Category Category
	Level    int
}

// AudioPatch updates the client-side audio pointers of an article.
// Nil fields are left untouched; an empty string clears the column.
type AudioPatch struct {
	AudioURL       *string
	AudioCachedAt  *time.Time
	LocalAudioPath *string
}

// ArticleFilter narrows the article listing.
type ArticleFilter struct {
	Source   Source
	Category Category
	Level    int
	Limit    int
	Offset   int
}

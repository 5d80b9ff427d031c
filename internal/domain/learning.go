package domain

import "time"

// LearningRecord aggregates one user's practice history for one article.
type LearningRecord struct {
	ArticleID        string    `json:"articleId"`
	PracticeCount    int       `json:"practiceCount"`
	TotalMinutes     float64   `json:"totalMinutes"`
	BestScore        float64   `json:"bestScore"`
	FirstPracticedAt time.Time `json:"firstPracticedAt"`
	LastPracticedAt  time.Time `json:"lastPracticedAt"`
}

// Apply folds one practice session into the record.
// BestScore never decreases.
func (r LearningRecord) Apply(score, minutes float64, at time.Time) LearningRecord {
	if r.PracticeCount == 0 {
		r.FirstPracticedAt = at
		r.BestScore = score
	} else if score > r.BestScore {
		r.BestScore = score
	}
	r.PracticeCount++
	r.TotalMinutes += minutes
	r.LastPracticedAt = at
	return r
}

// AudioCacheEntry is a stored text-to-speech result.
type AudioCacheEntry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

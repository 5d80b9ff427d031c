package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
)

var errEmptyID = errors.New("user id and article id are required")

// LearningRecords tracks per-user practice history in a key-value store.
// Writes for one user are serialised; the record and the index are
// read-modify-write pairs.
type LearningRecords struct {
	store  ports.KeyValueStore
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewLearningRecords wires the store.
func NewLearningRecords(store ports.KeyValueStore, logger *slog.Logger) *LearningRecords {
	return &LearningRecords{
		store:  store,
		logger: logging.OrDiscard(logger).With("component", "learning"),
		now:    time.Now,
		users:  make(map[string]*sync.Mutex),
	}
}

func (l *LearningRecords) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	return m
}

func learningKey(userID, articleID string) string {
	return "learning:" + userID + ":" + articleID
}

func learningIndexKey(userID string) string {
	return "learning_index:" + userID
}

// RecordSession folds one practice session into the user's record for the article.
func (l *LearningRecords) RecordSession(ctx context.Context, userID, articleID string, score, minutes float64) (domain.LearningRecord, error) {
	if userID == "" || articleID == "" {
		return domain.LearningRecord{}, errEmptyID
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := l.Get(ctx, userID, articleID)
	if err != nil {
		return domain.LearningRecord{}, err
	}
	record := domain.LearningRecord{ArticleID: articleID}
	if current != nil {
		record = *current
	} else if err := l.index(ctx, userID, articleID); err != nil {
		return domain.LearningRecord{}, err
	}

	record = record.Apply(score, minutes, l.now().UTC())

	raw, err := json.Marshal(record)
	if err != nil {
		return domain.LearningRecord{}, fmt.Errorf("marshal learning record: %w", err)
	}
	if err := l.store.Set(ctx, learningKey(userID, articleID), string(raw)); err != nil {
		return domain.LearningRecord{}, fmt.Errorf("save learning record: %w", err)
	}

	l.logger.Debug("session recorded", "user", userID, "article_id", articleID, "count", record.PracticeCount)
	return record, nil
}

// Get returns nil when the user has never practiced the article.
func (l *LearningRecords) Get(ctx context.Context, userID, articleID string) (*domain.LearningRecord, error) {
	raw, ok, err := l.store.Get(ctx, learningKey(userID, articleID))
	if err != nil {
		return nil, fmt.Errorf("load learning record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var record domain.LearningRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode learning record: %w", err)
	}
	return &record, nil
}

// Reset deletes every record of the user.
func (l *LearningRecords) Reset(ctx context.Context, userID string) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ids, err := l.indexed(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := l.store.Remove(ctx, learningKey(userID, id)); err != nil {
			return fmt.Errorf("remove learning record %s: %w", id, err)
		}
	}
	if err := l.store.Remove(ctx, learningIndexKey(userID)); err != nil {
		return fmt.Errorf("remove learning index: %w", err)
	}
	l.logger.Info("learning data reset", "user", userID, "records", len(ids))
	return nil
}

func (l *LearningRecords) index(ctx context.Context, userID, articleID string) error {
	ids, err := l.indexed(ctx, userID)
	if err != nil {
		return err
	}
	if slices.Contains(ids, articleID) {
		return nil
	}
	raw, err := json.Marshal(append(ids, articleID))
	if err != nil {
		return fmt.Errorf("marshal learning index: %w", err)
	}
	if err := l.store.Set(ctx, learningIndexKey(userID), string(raw)); err != nil {
		return fmt.Errorf("save learning index: %w", err)
	}
	return nil
}

func (l *LearningRecords) indexed(ctx context.Context, userID string) ([]string, error) {
	raw, ok, err := l.store.Get(ctx, learningIndexKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load learning index: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode learning index: %w", err)
	}
	return ids, nil
}

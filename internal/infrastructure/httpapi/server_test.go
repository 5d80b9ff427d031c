package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/infrastructure/kv"
	"ShadowNews/internal/infrastructure/scheduler"
	"ShadowNews/internal/infrastructure/storage"
	"ShadowNews/internal/usecase"
)

type fakeAudio struct{}

func (fakeAudio) GetOrGenerateForArticle(_ context.Context, articleID string) (string, error) {
	switch articleID {
	case "missing":
		return "", fmt.Errorf("load: %w", storage.ErrNotFound)
	case "mute":
		return "", usecase.ErrSpeechUnavailable
	}
	return "https://cdn.example/" + articleID + ".mp3", nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, audioURL, language string) (string, error) {
	return "heard " + audioURL + " in " + language, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts, _ := newTestServerWithRepo(t, nil)
	return ts
}

func newTestServerWithRepo(t *testing.T, offline func(*storage.SQLRepository) OfflineAudio) (*httptest.Server, *storage.SQLRepository) {
	t.Helper()

	repo, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, src := range []domain.Source{domain.SourceBBC, domain.SourceVOA, domain.SourceBBC} {
		_, err := repo.InsertIfAbsent(context.Background(), domain.Article{
			ArticleID:         fmt.Sprintf("%s-%d-aaaaaa", src, i),
			Title:             "Title",
			Content:           "Body",
			Category:          domain.CategoryBusinessPolitics,
			Level:             6,
			PublishedDate:     "2025-03-10",
			Source:            src,
			SourceURL:         fmt.Sprintf("https://example.com/%d", i),
			SourceAttribution: "News",
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cron := scheduler.New([]scheduler.Job{
		{Name: "fetch-articles", Schedule: "0 */6 * * *", Enabled: true, Run: func(context.Context) error { return nil }},
		{Name: "broken", Schedule: "@hourly", Enabled: true, Run: func(context.Context) error { return errors.New("boom") }},
	}, time.UTC, nil)

	deps := Deps{
		Articles:    repo,
		Cron:        cron,
		Audio:       fakeAudio{},
		Transcriber: fakeTranscriber{},
		Learning:    usecase.NewLearningRecords(kv.NewMemoryStore(), nil),
	}
	if offline != nil {
		deps.Offline = offline(repo)
	}
	ts := httptest.NewServer(New(deps).Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestListArticles(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	cases := []struct {
		query  string
		status int
		count  int
	}{
		{"", http.StatusOK, 3},
		{"?source=bbc", http.StatusOK, 2},
		{"?source=voa&level=6", http.StatusOK, 1},
		{"?limit=1&offset=1", http.StatusOK, 1},
		{"?source=cnn", http.StatusBadRequest, 0},
		{"?limit=500", http.StatusBadRequest, 0},
		{"?level=11", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, ts.URL+"/api/articles"+tc.query, "")
			if resp.StatusCode != tc.status {
				t.Fatalf("status %d, want %d: %s", resp.StatusCode, tc.status, body)
			}
			if tc.status != http.StatusOK {
				return
			}
			var articles []domain.Article
			if err := json.Unmarshal(body, &articles); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(articles) != tc.count {
				t.Fatalf("got %d articles, want %d", len(articles), tc.count)
			}
		})
	}
}

func TestGetArticle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/articles/voa-1-aaaaaa", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"source":"voa"`) {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/articles/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCronEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/cron/status", "")
	var statuses []scheduler.JobStatus
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &statuses) != nil || len(statuses) != 2 {
		t.Fatalf("status endpoint: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/api/cron/fetch-articles/run", "")
	var result scheduler.RunResult
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &result) != nil || !result.Success {
		t.Fatalf("run endpoint: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/api/cron/unknown/run", "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "job not found: unknown") {
		t.Fatalf("unknown job: %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/cron/broken/run", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("failing job: %d", resp.StatusCode)
	}
}

func TestAudioAndTranscription(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	cases := []struct {
		path   string
		status int
	}{
		{"/api/articles/bbc-0-aaaaaa/audio", http.StatusOK},
		{"/api/articles/missing/audio", http.StatusNotFound},
		{"/api/articles/mute/audio", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if resp, body := do(t, http.MethodPost, ts.URL+tc.path, ""); resp.StatusCode != tc.status {
			t.Fatalf("%s: status %d, want %d (%s)", tc.path, resp.StatusCode, tc.status, body)
		}
	}

	resp, body := do(t, http.MethodPost, ts.URL+"/api/transcriptions", `{"audioUrl":"https://rec/1.m4a"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "heard https://rec/1.m4a in en") {
		t.Fatalf("transcription: %d %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/transcriptions", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty request, got %d", resp.StatusCode)
	}
}

func TestLearningEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	path := ts.URL + "/api/learning/u1/bbc-0-aaaaaa"

	if resp, _ := do(t, http.MethodGet, path, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any session, got %d", resp.StatusCode)
	}

	do(t, http.MethodPost, path, `{"score":70,"minutes":3}`)
	resp, body := do(t, http.MethodPost, path, `{"score":90,"minutes":4}`)
	var rec domain.LearningRecord
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &rec) != nil {
		t.Fatalf("record: %d %s", resp.StatusCode, body)
	}
	if rec.PracticeCount != 2 || rec.BestScore != 90 || rec.TotalMinutes != 7 {
		t.Fatalf("unexpected record %+v", rec)
	}

	if resp, _ := do(t, http.MethodDelete, ts.URL+"/api/learning/u1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, path, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("record survived reset: %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	if resp, _ := do(t, http.MethodGet, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
}

func TestOfflineDownloadAndPlayback(t *testing.T) {
	t.Parallel()

	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	t.Cleanup(audio.Close)

	dir := t.TempDir()
	ts, repo := newTestServerWithRepo(t, func(repo *storage.SQLRepository) OfflineAudio {
		return usecase.NewOfflineAudio(dir, repo, nil)
	})

	remote := audio.URL + "/tts/bbc-0.mp3"
	if err := repo.PatchAudio(context.Background(), "bbc-0-aaaaaa", domain.AudioPatch{AudioURL: &remote}); err != nil {
		t.Fatalf("seed audio url: %v", err)
	}

	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/articles/voa-1-aaaaaa/download", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("article without audio: %d", resp.StatusCode)
	}

	resp, body := do(t, http.MethodPost, ts.URL+"/api/articles/bbc-0-aaaaaa/download", "")
	want := filepath.Join(dir, "bbc-0-aaaaaa.mp3")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
		t.Fatalf("download: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/api/articles/bbc-0-aaaaaa/playback?online=false", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
		t.Fatalf("offline playback should use local file: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodGet, ts.URL+"/api/articles/bbc-0-aaaaaa/playback", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), remote) {
		t.Fatalf("online playback should use remote url: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/api/articles/bbc-0-aaaaaa/playback?online=0", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
		t.Fatalf("online=0 should mean offline: %d %s", resp.StatusCode, body)
	}
	for _, raw := range []string{"no", "maybe"} {
		if resp, _ := do(t, http.MethodGet, ts.URL+"/api/articles/bbc-0-aaaaaa/playback?online="+raw, ""); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("online=%s: expected 400, got %d", raw, resp.StatusCode)
		}
	}

	if resp, _ := do(t, http.MethodDelete, ts.URL+"/api/articles/bbc-0-aaaaaa/download", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, ts.URL+"/api/articles/bbc-0-aaaaaa/playback?online=false", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("offline playback after delete: %d", resp.StatusCode)
	}
}

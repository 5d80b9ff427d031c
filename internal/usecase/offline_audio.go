package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
)

const (
	defaultAudioExt = ".mp3"
	partialSuffix   = ".part"
)

var errInvalidArticleID = errors.New("invalid article id")

// OfflineAudio keeps downloaded article audio in a local directory.
// An empty directory disables it.
type OfflineAudio struct {
	dir        string
	client     *http.Client
	repository ports.ArticleRepository
	logger     *slog.Logger
}

// NewOfflineAudio accepts a nil repository; article pointers are then not updated.
func NewOfflineAudio(dir string, repository ports.ArticleRepository, logger *slog.Logger) *OfflineAudio {
	return &OfflineAudio{
		dir:        strings.TrimSpace(dir),
		client:     &http.Client{Timeout: 5 * time.Minute},
		repository: repository,
		logger:     logging.OrDiscard(logger).With("component", "offline_audio"),
	}
}

// Supported reports whether a local audio directory is configured.
func (o *OfflineAudio) Supported() bool {
	return o.dir != ""
}

// Download fetches remoteURL to {dir}/{articleID}{ext} and returns the path.
// An existing file is returned as is. Failures yield "".
// onProgress receives percentages from 0 to 100 and may be nil.
func (o *OfflineAudio) Download(ctx context.Context, articleID, remoteURL string, onProgress func(percent int)) string {
	if !o.Supported() {
		o.logger.Warn("offline audio not supported, no directory configured", "article_id", articleID)
		return ""
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}

	if p, ok := o.LocalPath(articleID); ok {
		onProgress(100)
		return p
	}

	p, err := o.download(ctx, articleID, remoteURL, onProgress)
	if err != nil {
		o.logger.Error("audio download failed", "article_id", articleID, "url", remoteURL, "error", err)
		return ""
	}

	if o.repository != nil {
		if err := o.repository.PatchAudio(ctx, articleID, domain.AudioPatch{LocalAudioPath: &p}); err != nil {
			o.logger.Warn("local audio path not recorded", "article_id", articleID, "error", err)
		}
	}
	onProgress(100)
	o.logger.Info("audio downloaded", "article_id", articleID, "path", p)
	return p
}

func (o *OfflineAudio) download(ctx context.Context, articleID, remoteURL string, onProgress func(int)) (string, error) {
	if err := checkArticleID(articleID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(o.dir, articleID+"-*"+partialSuffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	body := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: onProgress}
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	final := filepath.Join(o.dir, articleID+audioExt(remoteURL))
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("move audio into place: %w", err)
	}
	return final, nil
}

// LocalPath returns the downloaded file for articleID, if any.
func (o *OfflineAudio) LocalPath(articleID string) (string, bool) {
	if !o.Supported() || checkArticleID(articleID) != nil {
		return "", false
	}
	matches, err := filepath.Glob(filepath.Join(o.dir, articleID+".*"))
	if err != nil {
		return "", false
	}
	for _, m := range matches {
		if strings.HasSuffix(m, partialSuffix) {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return m, true
		}
	}
	return "", false
}

// IsDownloaded reports whether a local file exists for articleID.
func (o *OfflineAudio) IsDownloaded(articleID string) bool {
	_, ok := o.LocalPath(articleID)
	return ok
}

// Size returns the byte size of the downloaded file, or 0 when absent.
func (o *OfflineAudio) Size(articleID string) int64 {
	p, ok := o.LocalPath(articleID)
	if !ok {
		return 0
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Delete removes the local file and clears the article pointer.
func (o *OfflineAudio) Delete(ctx context.Context, articleID string) error {
	if !o.Supported() {
		return nil
	}
	p, ok := o.LocalPath(articleID)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	if o.repository != nil {
		empty := ""
		if err := o.repository.PatchAudio(ctx, articleID, domain.AudioPatch{LocalAudioPath: &empty}); err != nil {
			o.logger.Warn("local audio path not cleared", "article_id", articleID, "error", err)
		}
	}
	return nil
}

// AudioURLForPlayback picks the local file when offline and the remote URL
// when online. It returns "" when neither applies.
func (o *OfflineAudio) AudioURLForPlayback(article domain.Article, online bool) string {
	if !online {
		if o.Supported() && article.LocalAudioPath != "" && fileExists(article.LocalAudioPath) {
			return article.LocalAudioPath
		}
		return ""
	}
	return article.AudioURL
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if pct := int(p.read * 100 / p.total); pct != p.last && pct < 100 {
		p.last = pct
		p.report(pct)
	}
	return n, err
}

func audioExt(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return defaultAudioExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 5 {
		return defaultAudioExt
	}
	return ext
}

func checkArticleID(articleID string) error {
	if articleID == "" || strings.ContainsAny(articleID, `/\*?[`) || strings.Contains(articleID, "..") {
		return fmt.Errorf("%w: %q", errInvalidArticleID, articleID)
	}
	return nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

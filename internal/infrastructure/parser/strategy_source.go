package parser

import (
	"log/slog"
	"net/http"

	"ShadowNews/internal/config"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/scanner"
)

// NewRegistry registers one HTMLScraper per built-in source profile.
func NewRegistry(cfg config.FetchConfig, logger *slog.Logger) *scanner.Registry {
	logger = logging.OrDiscard(logger)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	reg := scanner.NewRegistry()
	for _, profile := range Profiles() {
		reg.Register(NewHTMLScraper(profile, client, cfg.UserAgent, logger.With("component", "scraper")))
	}
	return reg
}

// ConfiguredScrapers resolves source names in configured order.
// Unknown names are logged and skipped so one typo does not disable the run.
func ConfiguredScrapers(reg *scanner.Registry, names []string, logger *slog.Logger) []scanner.Scraper {
	logger = logging.OrDiscard(logger)

	scrapers := make([]scanner.Scraper, 0, len(names))
	for _, name := range names {
		s, err := reg.Resolve(name)
		if err != nil {
			logger.Warn("unknown source in config", "source", name, "error", err)
			continue
		}
		scrapers = append(scrapers, s)
	}
	logger.Debug("scrapers resolved", "configured", len(names), "active", len(scrapers))
	return scrapers
}

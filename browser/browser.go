package browser

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-news/config"
)

// New opens the session kind selected by cfg.Browser. Failure to open a
// session is fatal for the run.
func New(cfg *config.Config) (Session, error) {
	switch cfg.Browser {
	case "chrome":
		s, err := NewChromeSession(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "http":
		s, err := NewHTTPSession(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported browser: %s", cfg.Browser)
	}
}

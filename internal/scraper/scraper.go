package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/parser"
)

const (
	UserAgent = "trackstats-cli/1.0 (github.com/pfrederiksen/trackstats)"
	Timeout   = 30 * time.Second

	// MaxPageSize caps a downloaded page.
	MaxPageSize = 32 << 20
)

// Download statuses.
const (
	StatusFetched = "fetched"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// ErrNotResultPage is returned for a page no parser recognizes, such as a
// login wall or an error page served with status 200.
var ErrNotResultPage = errors.New("page is not a recognized result page")

// Scraper downloads meet source pages
type Scraper struct {
	client *http.Client
	log    *logger.Logger
}

// New creates a new Scraper instance
func New(log *logger.Logger) *Scraper {
	if log == nil {
		log = logger.Default()
	}
	return &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		log: log,
	}
}

// Download is the outcome of fetching one source.
type Download struct {
	Meet   string `json:"meet"`
	URL    string `json:"url"`
	Path   string `json:"path"`
	Status string `json:"status"`
	Title  string `json:"title,omitempty"`
	Parser string `json:"parser,omitempty"`
	Bytes  int    `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

// Fetch fetches url and returns the page body
func (s *Scraper) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	if len(body) > MaxPageSize {
		return nil, fmt.Errorf("page larger than %d bytes", MaxPageSize)
	}
	return body, nil
}

// FetchMeet downloads every source of cfg that has a URL to its file path.
// Existing files are kept unless force is set. A failed source is reported
// in its Download and does not stop the others; only a cancelled context
// returns an error.
func (s *Scraper) FetchMeet(ctx context.Context, cfg *meet.Config, dataDir string, force bool) ([]Download, error) {
	downloads := []Download{}
	for _, src := range cfg.Sources {
		if src.URL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return downloads, err
		}

		d := Download{Meet: cfg.Meet.Name, URL: src.URL, Path: cfg.SourcePath(dataDir, src)}
		fields := logger.Fields{"meet": d.Meet, "url": d.URL, "path": d.Path}

		if _, err := os.Stat(d.Path); err == nil && !force {
			d.Status = StatusSkipped
			s.log.Debug("Source already downloaded", fields)
			downloads = append(downloads, d)
			continue
		}

		if err := s.download(ctx, src, &d); err != nil {
			d.Status = StatusFailed
			d.Error = err.Error()
			s.log.Warn("Download failed", logger.Fields{"meet": d.Meet, "url": d.URL, "error": d.Error})
			logger.IncrCounter("downloads.failed")
		} else {
			d.Status = StatusFetched
			fields["bytes"] = d.Bytes
			fields["parser"] = d.Parser
			s.log.Info("Downloaded source", fields)
			logger.IncrCounter("downloads.fetched")
		}
		downloads = append(downloads, d)
	}
	return downloads, nil
}

func (s *Scraper) download(ctx context.Context, src meet.Source, d *Download) error {
	body, err := s.Fetch(ctx, src.URL)
	if err != nil {
		return err
	}

	p, err := parser.Select(src.Parser, body)
	if err != nil {
		if errors.Is(err, parser.ErrUnrecognizedFormat) {
			return ErrNotResultPage
		}
		return err
	}
	d.Parser = p.Name()
	d.Title = pageTitle(body)
	d.Bytes = len(body)

	return writeFile(d.Path, body)
}

// pageTitle returns the <title> of an HTML page, or "" for plain text.
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating source directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing source: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing source: %w", err)
	}
	return nil
}

package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lotterylab/lotterylab/pkg/logger"
)

// archivePrefix names the raw feed snapshots kept on disk.
const archivePrefix = "mbnet_"

// FetchResult is one downloaded feed snapshot.
type FetchResult struct {
	Text        string
	SHA256      string
	ArchiveFile string
	// Unchanged is true when the download matches the newest archived
	// snapshot byte for byte.
	Unchanged bool
}

// Fetcher downloads the feed and maintains the raw snapshot archive.
type Fetcher struct {
	client    *http.Client
	sourceURL string
	rawDir    string
	retention int
	log       *logger.Logger
}

// NewFetcher creates a Fetcher. retention caps how many snapshots are kept;
// values <= 0 keep the default of 30.
func NewFetcher(sourceURL, rawDir string, retention int, timeout time.Duration, log *logger.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retention <= 0 {
		retention = 30
	}
	if log == nil {
		log = logger.NewDefault("fetcher")
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		sourceURL: sourceURL,
		rawDir:    rawDir,
		retention: retention,
		log:       log,
	}
}

// Fetch downloads the feed, decodes it, and archives the snapshot unless it
// is identical to the newest one already on disk.
func (f *Fetcher) Fetch(ctx context.Context) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return FetchResult{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, fmt.Errorf("download feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return FetchResult{}, fmt.Errorf("read feed body: %w", err)
	}

	sum := sha256.Sum256(body)
	result := FetchResult{
		Text:   decodeFeed(body),
		SHA256: hex.EncodeToString(sum[:]),
	}

	if f.rawDir == "" {
		return result, nil
	}
	if err := os.MkdirAll(f.rawDir, 0o755); err != nil {
		return FetchResult{}, fmt.Errorf("create raw dir: %w", err)
	}

	if latest, ok := f.latestArchive(); ok {
		if prev, err := os.ReadFile(filepath.Join(f.rawDir, latest)); err == nil {
			prevSum := sha256.Sum256(prev)
			if hex.EncodeToString(prevSum[:]) == result.SHA256 {
				result.Unchanged = true
				result.ArchiveFile = latest
				return result, nil
			}
		}
	}

	name := archivePrefix + time.Now().UTC().Format("20060102_150405") + ".txt"
	if err := os.WriteFile(filepath.Join(f.rawDir, name), body, 0o644); err != nil {
		return FetchResult{}, fmt.Errorf("archive feed: %w", err)
	}
	result.ArchiveFile = name

	f.pruneArchives()
	return result, nil
}

// decodeFeed interprets the body as UTF-8, falling back to Latin-1 when the
// bytes do not form valid UTF-8. The feed has shipped both encodings over
// the years.
func decodeFeed(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	var b strings.Builder
	b.Grow(len(body))
	for _, c := range body {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func (f *Fetcher) archiveNames() []string {
	entries, err := os.ReadDir(f.rawDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, ".txt") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (f *Fetcher) latestArchive() (string, bool) {
	names := f.archiveNames()
	if len(names) == 0 {
		return "", false
	}
	return names[len(names)-1], true
}

func (f *Fetcher) pruneArchives() {
	names := f.archiveNames()
	for len(names) > f.retention {
		victim := names[0]
		if err := os.Remove(filepath.Join(f.rawDir, victim)); err != nil {
			f.log.WithError(err).WithField("file", victim).Warn("failed to prune archive")
			return
		}
		names = names[1:]
	}
}

// Package httpclient implements the HTTP access layer aqt-go uses to talk
// to download.qt.io-shaped repositories: plain GETs for catalog/listing
// text, and checksum-verified downloads with mirror failover for archives.
package httpclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/klauspost/compress/gzip"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
	"github.com/goaqt/aqt/internal/config"
)

var log = aqtlog.For("httpclient")

// Client fetches catalog text and package archives from a base URL with a
// configured set of fallback mirrors, the way the original's get_hash/
// getUrl/downloadBinaryFile helpers do.
type Client struct {
	settings *config.Settings
	http     *http.Client
}

// New constructs a Client from settings, sizing connection reuse the same
// way the teacher's repo reader does (MaxIdleConnsPerHost), with the
// transport's own compression negotiation disabled: Accept-Encoding: gzip
// is set explicitly per request and gzip bodies are decoded in open.
func New(settings *config.Settings) *Client {
	return &Client{
		settings: settings,
		http: &http.Client{
			Timeout: settings.ConnectionTimeout + settings.ResponseTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				DisableCompression:  true,
			},
		},
	}
}

type gzipReadCloser struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.zr.Read(p) }
func (r *gzipReadCloser) Close() error {
	if err := r.zr.Close(); err != nil {
		return err
	}
	return r.body.Close()
}

// candidateURLs returns the ordered list of full URLs to try for relPath:
// the configured base URL first, then a single randomly chosen fallback
// mirror, matching fetch_http's "try base, then one random fallback" retry
// shape.
func (c *Client) candidateURLs(relPath string) []string {
	urls := []string{strings.TrimRight(c.settings.BaseURL, "/") + "/" + strings.TrimLeft(relPath, "/")}
	if len(c.settings.Fallbacks) > 0 {
		pick := c.settings.Fallbacks[rand.Intn(len(c.settings.Fallbacks))]
		urls = append(urls, strings.TrimRight(pick, "/")+"/"+strings.TrimLeft(relPath, "/"))
	}
	return urls
}

func (c *Client) open(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, aqterrors.NewArchiveConnectionError(fmt.Sprintf("connecting to %s", fullURL), err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, aqterrors.NewArchiveListError(fmt.Sprintf("%s: HTTP 404", fullURL), nil)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, aqterrors.NewArchiveConnectionError(fmt.Sprintf("%s: HTTP status %s", fullURL, resp.Status), nil)
	}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		return &gzipReadCloser{body: resp.Body, zr: zr}, nil
	}
	return resp.Body, nil
}

// GetText retrieves relPath as text, trying the base URL then a fallback
// mirror, matching fetch_http(is_check_hash=False).
func (c *Client) GetText(ctx context.Context, relPath string) (string, error) {
	var lastErr error
	for _, u := range c.candidateURLs(relPath) {
		rc, err := c.open(ctx, u)
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("url", u).Warn("fetch failed, trying next candidate")
			continue
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			lastErr = err
			continue
		}
		return string(b), nil
	}
	return "", lastErr
}

// GetHash retrieves the expected checksum for relPath from the
// "<relPath>.sha256" sidecar file, retrying up to MaxRetriesForHash times,
// matching get_hash's checksum-download behavior. Each retry prefers a
// freshly, randomly chosen trusted mirror over the configured base URL,
// since a sidecar file missing from one mirror is often just as reachable
// from another.
func (c *Client) GetHash(ctx context.Context, relPath string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.settings.MaxRetriesForHash; attempt++ {
		base := c.settings.BaseURL
		if len(c.settings.TrustedMirrors) > 0 {
			base = c.settings.TrustedMirrors[rand.Intn(len(c.settings.TrustedMirrors))]
		}
		sidecarURL := URLJoin(base, relPath+".sha256")
		rc, err := c.open(ctx, sidecarURL)
		if err == nil {
			b, readErr := io.ReadAll(rc)
			rc.Close()
			if readErr != nil {
				lastErr = readErr
			} else {
				fields := strings.Fields(string(b))
				if len(fields) == 0 {
					lastErr = fmt.Errorf("empty checksum file for %s", relPath)
				} else {
					return fields[0], nil
				}
			}
		} else {
			lastErr = err
		}
		log.WithField("attempt", attempt).WithField("maxAttempts", c.settings.MaxRetriesForHash).
			Warn("checksum fetch failed, retrying")
	}
	return "", aqterrors.NewChecksumDownloadFailure(fmt.Sprintf("could not retrieve checksum for %s", relPath), lastErr)
}

// metalinkDoc is the subset of RFC 5854 metalink4 XML the repository's
// ".meta4" sidecar files carry: one or more mirror URLs per file, each
// tagged with a priority (lower number is more preferred).
type metalinkDoc struct {
	Files []struct {
		URLs []struct {
			Priority string `xml:"priority,attr"`
			Location string `xml:",chardata"`
		} `xml:"url"`
	} `xml:"file"`
}

// AltLink fetches relPath's ".meta4" metalink sidecar and returns the
// highest-priority mirror URL not present in Settings.Blacklist, matching
// helper.altlink. If the sidecar can't be fetched or parsed, has no
// mirrors, or every mirror is blacklisted, it falls back to relPath's
// plain URL under the configured base, exactly as the original does when
// mirrors is empty.
func (c *Client) AltLink(ctx context.Context, relPath string) (string, error) {
	primary := URLJoin(c.settings.BaseURL, relPath)
	text, err := c.GetText(ctx, relPath+".meta4")
	if err != nil {
		return primary, nil
	}
	var doc metalinkDoc
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return primary, nil
	}
	type prioritized struct {
		priority int
		url      string
	}
	var mirrors []prioritized
	for _, f := range doc.Files {
		for _, u := range f.URLs {
			pri, err := strconv.Atoi(u.Priority)
			if err != nil {
				continue
			}
			mirrors = append(mirrors, prioritized{priority: pri, url: u.Location})
		}
	}
	if len(mirrors) == 0 {
		return primary, nil
	}
	sort.Slice(mirrors, func(i, j int) bool { return mirrors[i].priority < mirrors[j].priority })
	for _, m := range mirrors {
		if isBlacklisted(m.url, c.settings.Blacklist) {
			continue
		}
		log.WithField("mirror", m.url).Debug("select mirror")
		return m.url, nil
	}
	return primary, nil
}

func isBlacklisted(mirror string, blacklist []string) bool {
	for _, b := range blacklist {
		if strings.HasPrefix(mirror, b) {
			return true
		}
	}
	return false
}

// DownloadToFile downloads relPath to destPath atomically (via renameio),
// verifying its sha256 checksum against the value GetHash returns, and
// retrying the whole download up to MaxRetriesOnChecksumError times on
// mismatch, matching installer.py's retry_on_errors(acceptable_errors=
// (ArchiveChecksumError,)) wrapper around downloadBinaryFile.
func (c *Client) DownloadToFile(ctx context.Context, relPath, destPath string) error {
	expected, err := c.GetHash(ctx, relPath)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 1; attempt <= c.settings.MaxRetriesOnChecksumError; attempt++ {
		if err := c.downloadOnce(ctx, relPath, destPath, expected); err != nil {
			lastErr = err
			var checksumErr *aqterrors.ArchiveChecksumError
			if errors.As(err, &checksumErr) {
				log.WithField("attempt", attempt).Warn("checksum mismatch, retrying download")
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

func (c *Client) downloadOnce(ctx context.Context, relPath, destPath, expectedHash string) error {
	urls := c.candidateURLs(relPath)
	if alt, err := c.AltLink(ctx, relPath); err == nil && alt != urls[0] {
		urls = append([]string{alt}, urls...)
	}
	var lastErr error
	for _, u := range urls {
		if err := c.downloadFrom(ctx, u, destPath, expectedHash); err != nil {
			lastErr = err
			log.WithError(err).WithField("url", u).Warn("download failed, trying next candidate")
			continue
		}
		return nil
	}
	return aqterrors.NewArchiveDownloadError(fmt.Sprintf("downloading %s", relPath), lastErr)
}

func (c *Client) downloadFrom(ctx context.Context, fullURL, destPath, expectedHash string) error {
	rc, err := c.open(ctx, fullURL)
	if err != nil {
		return err
	}
	defer rc.Close()

	t, err := renameio.TempFile("", destPath)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(t, h), rc); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if expectedHash != "" && !strings.EqualFold(got, expectedHash) {
		return aqterrors.NewArchiveChecksumError(
			fmt.Sprintf("checksum mismatch for %s: got %s, want %s", fullURL, got, expectedHash), nil)
	}
	return t.CloseAtomicallyReplace()
}

// URLJoin joins a base path and a relative component with exactly one
// slash between them, the way to_url()/to_folder() results are combined
// throughout the resolver.
func URLJoin(base, rel string) string {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/"))
	if err != nil {
		return base + rel
	}
	return u.String()
}

func init() {
	rand.Seed(time.Now().UnixNano())
}

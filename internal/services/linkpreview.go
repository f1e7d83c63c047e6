package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

const (
	// MaxPreviewsPerMessage caps how many URLs from one message get fetched
	MaxPreviewsPerMessage = 3

	previewFetchTimeout = 5 * time.Second
	maxPreviewBodyBytes = 512 * 1024
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractURLs pulls up to max http(s) URLs from a message body, in order,
// deduplicated
func ExtractURLs(body string, max int) []string {
	matches := urlRegex.FindAllString(body, -1)
	seen := make(map[string]bool)
	var urls []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)")
		if seen[m] {
			continue
		}
		seen[m] = true
		urls = append(urls, m)
		if len(urls) == max {
			break
		}
	}
	return urls
}

// PreviewFetcher fetches link-preview metadata with an SSRF guard: every
// resolved address must be public, and redirects are never followed (a
// redirect could bounce a vetted hostname to an internal address).
type PreviewFetcher struct {
	client *http.Client

	// AllowPrivate disables the address check. Only for tests, which
	// fetch from a loopback httptest server.
	AllowPrivate bool
}

func NewPreviewFetcher() *PreviewFetcher {
	return &PreviewFetcher{
		client: &http.Client{
			Timeout: previewFetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

var errPrivateAddress = errors.New("target resolves to a private or local address")

// CheckTarget resolves the URL's host and rejects loopback, link-local,
// unspecified and RFC1918/ULA addresses
func (f *PreviewFetcher) CheckTarget(rawURL string) error {
	if f.AllowPrivate {
		return nil
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	host := req.URL.Hostname()
	if host == "" {
		return errors.New("url has no host")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return err
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
			ip.IsPrivate() || ip.IsUnspecified() {
			return errPrivateAddress
		}
	}
	return nil
}

// Fetch retrieves and parses preview metadata for one URL
func (f *PreviewFetcher) Fetch(ctx context.Context, rawURL string) (*models.LinkPreview, error) {
	if err := f.CheckTarget(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "dt-chat-linkpreview/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Redirects come back as-is with CheckRedirect disabled; anything
	// that is not a direct 200 is skipped
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("non-200 response")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil, errors.New("not an html page")
	}

	preview := parsePreviewHTML(io.LimitReader(resp.Body, maxPreviewBodyBytes))
	if preview.Title == "" && preview.Description == "" {
		return nil, errors.New("no usable metadata")
	}
	preview.URL = rawURL
	return preview, nil
}

// parsePreviewHTML walks the document head collecting <title> and
// OpenGraph/description meta tags
func parsePreviewHTML(r io.Reader) *models.LinkPreview {
	preview := &models.LinkPreview{}
	tokenizer := html.NewTokenizer(r)

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return preview
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				if preview.Title == "" && tokenizer.Next() == html.TextToken {
					preview.Title = strings.TrimSpace(tokenizer.Token().Data)
				}
			case "meta":
				var property, name, content string
				for _, attr := range token.Attr {
					switch attr.Key {
					case "property":
						property = attr.Val
					case "name":
						name = attr.Val
					case "content":
						content = attr.Val
					}
				}
				switch property {
				case "og:title":
					preview.Title = content
				case "og:description":
					preview.Description = content
				case "og:image":
					preview.ImageURL = content
				case "og:site_name":
					preview.SiteName = content
				}
				if name == "description" && preview.Description == "" {
					preview.Description = content
				}
			case "body":
				// Metadata lives in the head; stop early
				return preview
			}
		}
	}
}

// DefaultFetcher serves the fire-and-forget path below
var DefaultFetcher = NewPreviewFetcher()

// FetchAndStorePreviews extracts URLs from a message body, fetches their
// metadata and persists the results. Runs detached after the send commits;
// failures are logged, never surfaced.
func FetchAndStorePreviews(messageID, body string) {
	urls := ExtractURLs(body, MaxPreviewsPerMessage)
	if len(urls) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), previewFetchTimeout)
	defer cancel()

	for _, u := range urls {
		preview, err := DefaultFetcher.Fetch(ctx, u)
		if err != nil {
			logger.Debug().Err(err).Str("url", u).Msg("Link preview skipped")
			continue
		}
		preview.MessageID = messageID
		if err := database.DB.Create(preview).Error; err != nil {
			logger.Warn().Err(err).Str("url", u).Msg("Failed to store link preview")
		}
	}
}

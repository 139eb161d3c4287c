package modelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
)

// maxModelBytes bounds a fetched document.
const maxModelBytes = 4 << 20

// Fetcher retrieves a model document from the remote authority.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (map[string]any, error)
}

// HTTPFetcher fetches models with GET requests against a URI template.
type HTTPFetcher struct {
	// URIFormat is a fmt template with one %s for the query-escaped model
	// name, e.g. "https://meta.example.org/w/index.php?title=Schema:%s&action=raw".
	URIFormat string

	// Client sends the requests. Nil uses http.DefaultClient.
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher for uriFormat.
func NewHTTPFetcher(uriFormat string, client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{URIFormat: uriFormat, Client: client}
}

// Fetch implements Fetcher. Every failure, whether transport, status or
// decoding, wraps errors.ErrRemoteFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (map[string]any, error) {
	endpoint := fmt.Sprintf(f.URIFormat, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", elerrors.ErrRemoteFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", elerrors.ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %w", elerrors.ErrRemoteFetch, &elerrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Endpoint:   endpoint,
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxModelBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", elerrors.ErrRemoteFetch, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", elerrors.ErrRemoteFetch, &elerrors.JSONParseError{
			Input:   truncate(string(body), 200),
			Message: err.Error(),
		})
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %w", elerrors.ErrRemoteFetch, &elerrors.JSONParseError{
			Input:   truncate(string(body), 200),
			Message: "expected a JSON object",
		})
	}
	return doc, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxRetries bounds the retries of a single fetch on server errors.
const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// HTTPRetriever fetches content files relative to a base URL.
type HTTPRetriever struct {
	baseURL    string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

func NewHTTPRetriever(baseURL string, log *slog.Logger) *HTTPRetriever {
	return &HTTPRetriever{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: Backoff,
		log:     log.With("component", "http_retriever"),
	}
}

func (h *HTTPRetriever) Fetch(ctx context.Context, name string) ([]byte, error) {
	u, err := h.url(name)
	if err != nil {
		return nil, &RetrievalError{Path: name, Reason: err.Error(), Err: err}
	}

	var lastErr *RetrievalError
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := h.backoff(attempt - 1)
			h.log.Debug("retrying fetch", "path", name, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, &RetrievalError{Path: name, Reason: ctx.Err().Error(), Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		data, rerr := h.get(ctx, name, u)
		if rerr == nil {
			return data, nil
		}
		lastErr = rerr
		if !retryable(rerr) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (h *HTTPRetriever) get(ctx context.Context, name, u string) ([]byte, *RetrievalError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RetrievalError{Path: name, Reason: err.Error(), Err: fmt.Errorf("create request: %w", err)}
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &RetrievalError{Path: name, Reason: "network error", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &RetrievalError{Path: name, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetrievalError{Path: name, Reason: "read body", Err: err}
	}
	return data, nil
}

func (h *HTTPRetriever) url(name string) (string, error) {
	segs := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, s := range segs {
		if s == ".." {
			return "", fmt.Errorf("invalid path %q", name)
		}
		segs[i] = url.PathEscape(s)
	}
	return h.baseURL + "/" + strings.Join(segs, "/"), nil
}

// retryable reports whether a failed fetch is worth repeating: server errors
// and transport failures.
func retryable(err *RetrievalError) bool {
	return err.Status == 0 || err.Status >= 500
}

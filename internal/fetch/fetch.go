// Package fetch downloads registrant images over HTTP(S) or reads them from disk.
package fetch

import (
	"context"
	"errors"
	"image"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-consistency/internal/imaging"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxImageBytes bounds a single download.
const maxImageBytes = 32 << 20

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	RatePerSecond float64
	BackoffBase   time.Duration // first retry delay, doubled per attempt
	Logger        *zap.Logger
}

// HTTPFetcher implements verification.ImageFetcher with retry and rate limiting.
// References without a scheme and file:// URLs are read from the local filesystem.
type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RatePerSecond == 0 {
		opts.RatePerSecond = 20
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "face-consistency/1.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	burst := max(1, int(math.Ceil(opts.RatePerSecond)))
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst),
		logger:  logger,
	}
}

// Fetch downloads or reads the referenced image and decodes it.
// Every failure is returned as *verification.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &verification.FetchError{Reference: ref, Err: verification.ErrEmptyReference}
	}

	var data []byte
	var err error
	if path, ok := localPath(ref); ok {
		data, err = readFile(path)
	} else {
		data, err = f.download(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, &verification.FetchError{Reference: ref, Err: eris.Wrap(err, "decode")}
	}
	return img, nil
}

// localPath reports whether ref names a file on disk and returns its path.
func localPath(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return ref, true
	}
	if u.Scheme == "file" {
		return u.Path, true
	}
	// Windows drive letters parse as a one-letter scheme.
	if len(u.Scheme) == 1 {
		return ref, true
	}
	return "", false
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &verification.FetchError{Reference: path, Err: eris.Wrap(err, "open file")}
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return nil, &verification.FetchError{Reference: path, Err: eris.Wrap(err, "read file")}
	}
	return data, nil
}

func (f *HTTPFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &verification.FetchError{Reference: rawURL, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		fetchErr := &verification.FetchError{Reference: rawURL, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			fetchErr.Status = se.status
		}
		return nil, fetchErr
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &verification.FetchError{Reference: rawURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &verification.FetchError{Reference: rawURL, Err: eris.Wrap(err, "read body")}
	}
	return data, nil
}

// statusError is a retryable response that survived every attempt.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "http " + http.StatusText(e.status)
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			f.logger.Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = &statusError{status: resp.StatusCode}
			f.logger.Warn("retryable status, backing off",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// backoff sleeps before the next attempt; it returns immediately after the last one.
func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	if attempt >= f.opts.MaxRetries-1 {
		return
	}
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(f.opts.BackoffBase) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

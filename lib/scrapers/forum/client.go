package forum

import (
	"context"
	"log/slog"
	"net/http/cookiejar"
	"time"

	"chanceme-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Client struct {
	Http *resty.Client
	opts ClientOptions
}

type ClientOptions struct {
	BaseUrl string
	// Attempts is the ceiling on tries for a single request when the
	// source throttles or denies it. Defaults to 3.
	Attempts int
	// BaseDelay is the unit of the exponential backoff between throttled
	// attempts: wait = 2^attempt * BaseDelay. Defaults to 1s.
	BaseDelay time.Duration
	// TransportDelay is the fixed wait after a transport-level failure
	// (timeout, connection reset). Defaults to 1s.
	TransportDelay time.Duration
	// Sleep exists so tests don't have to wait out real backoff.
	Sleep func(time.Duration)
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.TransportDelay <= 0 {
		opts.TransportDelay = time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", defaultUserAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/forum/http")

	return &Client{Http: client, opts: opts}, nil
}

// fetch issues a GET and retries while the source throttles (429) or
// denies (403) it, backing off exponentially between attempts. Any other
// non-2xx status is not worth retrying. A nil return means the request
// persistently failed and the caller should move on without data.
func (c *Client) fetch(ctx context.Context, path string, query map[string]string) []byte {
	for attempt := 1; ; attempt++ {
		res, err := c.Http.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			slog.WarnContext(ctx, "forum request transport error", "path", path, "err", err)
			if attempt >= c.opts.Attempts {
				return nil
			}
			c.opts.Sleep(c.opts.TransportDelay)
			continue
		}

		status := res.StatusCode()
		if status == 429 || status == 403 {
			if attempt >= c.opts.Attempts {
				slog.WarnContext(ctx, "forum request gave up", "path", path, "status", status)
				return nil
			}
			wait := c.opts.BaseDelay * (1 << attempt)
			slog.DebugContext(ctx, "forum request throttled", "path", path, "status", status, "wait", wait)
			c.opts.Sleep(wait)
			continue
		}
		if res.IsError() {
			slog.WarnContext(ctx, "forum request failed", "path", path, "status", status)
			return nil
		}

		return res.Body()
	}
}

package honk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	domain "github.com/skitools/parkwatch/pkg/types"
)

// The portal sits behind Cloudflare, so the availability query has to come
// out of a real browser context. A mobile viewport gets the lighter variant
// of the page.
const mobileUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const availabilityQuery = `query PublicParkingAvailability($id: ID!, $cartStartTime: String, $startDay: Int, $endDay: Int, $year: Int, $portalHashid: String) {
  publicParkingAvailability(id: $id, cartStartTime: $cartStartTime, startDay: $startDay, endDay: $endDay, year: $year, portalHashid: $portalHashid)
}`

// availabilityRequest is the GraphQL request body for one month.
type availabilityRequest struct {
	OperationName string                `json:"operationName"`
	Variables     availabilityVariables `json:"variables"`
	Query         string                `json:"query"`
}

type availabilityVariables struct {
	ID            string `json:"id"`
	CartStartTime string `json:"cartStartTime"`
	StartDay      int    `json:"startDay"`
	EndDay        int    `json:"endDay"`
	Year          int    `json:"year"`
	PortalHashid  string `json:"portalHashid"`
}

// pageFetchResult is what the in-page fetch script returns.
type pageFetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Browser implements Fetcher by driving a headless Chrome instance. The
// allocator (the Chrome process pool) lives for the Browser's lifetime; every
// Fetch opens a fresh tab, loads the reservation page, and issues the
// availability query from page context so it rides the page's Cloudflare
// clearance.
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc

	limiter      *RateLimiter
	log          *slog.Logger
	fetchTimeout time.Duration
	settleDelay  time.Duration
	maxRetries   int
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithBrowserLogger sets the logger for fetch diagnostics.
func WithBrowserLogger(l *slog.Logger) BrowserOption {
	return func(b *Browser) {
		b.log = l
	}
}

// WithRateLimiter paces fetches through the given limiter.
func WithRateLimiter(r *RateLimiter) BrowserOption {
	return func(b *Browser) {
		b.limiter = r
	}
}

// WithFetchTimeout bounds a single Fetch call.
func WithFetchTimeout(d time.Duration) BrowserOption {
	return func(b *Browser) {
		b.fetchTimeout = d
	}
}

// WithSettleDelay sets how long to wait after navigation before querying,
// giving the Cloudflare interstitial time to clear.
func WithSettleDelay(d time.Duration) BrowserOption {
	return func(b *Browser) {
		b.settleDelay = d
	}
}

// NewBrowser starts a headless Chrome allocator for availability fetches.
// Call Close when done.
func NewBrowser(opts ...BrowserOption) *Browser {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.UserAgent(mobileUserAgent),
		chromedp.WindowSize(390, 844),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOpts...)

	b := &Browser{
		allocCtx:     allocCtx,
		cancelAlloc:  cancelAlloc,
		log:          slog.Default(),
		fetchTimeout: 120 * time.Second,
		settleDelay:  3 * time.Second,
		maxRetries:   3,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close shuts down the Chrome allocator.
func (b *Browser) Close() {
	b.cancelAlloc()
}

// Fetch loads the reservation page and queries availability for every
// requested month, returning the merged parsed result.
func (b *Browser) Fetch(ctx context.Context, loc domain.Location, months []Month) (Availability, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.fetchTimeout)
	defer cancelTimeout()

	// Stop the tab if the caller's context is canceled mid-fetch.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-tabCtx.Done():
		}
	}()

	if err := b.loadPortal(tabCtx); err != nil {
		return nil, err
	}

	merged := make(Availability)
	for _, m := range months {
		monthAvail, err := b.fetchMonth(tabCtx, loc, m)
		if err != nil {
			return nil, fmt.Errorf("location %s month %04d-%02d: %w", loc, m.Year, int(m.Month), err)
		}
		for date, day := range monthAvail {
			merged[date] = day
		}
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: upstream returned no availability data", ErrParse)
	}
	return merged, nil
}

// loadPortal navigates to the reservation page, retrying with quadratic
// backoff on transient failures.
func (b *Browser) loadPortal(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			b.log.Warn("portal load retry",
				"attempt", attempt+1,
				"max_retries", b.maxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(backoff):
			}
		}

		err = chromedp.Run(ctx,
			chromedp.Navigate(SiteURL),
			chromedp.Sleep(b.settleDelay),
		)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: loading portal after %d attempts: %v", ErrNetwork, b.maxRetries, err)
}

// fetchMonth issues the availability query for one month from page context.
func (b *Browser) fetchMonth(ctx context.Context, loc domain.Location, m Month) (Availability, error) {
	startDay, endDay := m.DayRange()
	reqBody, err := json.Marshal(availabilityRequest{
		OperationName: "PublicParkingAvailability",
		Variables: availabilityVariables{
			ID:            loc.InventoryID(),
			CartStartTime: m.CartStartTime(),
			StartDay:      startDay,
			EndDay:        endDay,
			Year:          m.Year,
			PortalHashid:  rsvpPortalID,
		},
		Query: availabilityQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: building query: %v", ErrParse, err)
	}

	script := fmt.Sprintf(`(async () => {
	const resp = await fetch(%q, {
		method: "POST",
		headers: {"content-type": "application/json"},
		body: %s,
	});
	const body = await resp.text();
	return {status: resp.status, body: body};
})()`, graphqlURL, jsString(reqBody))

	var result pageFetchResult
	err = chromedp.Run(ctx, chromedp.Evaluate(script, &result,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return nil, fmt.Errorf("%w: in-page query: %v", ErrNetwork, err)
	}

	if result.Status == 403 || result.Status == 429 || looksChallenged(result.Body) {
		return nil, fmt.Errorf("%w: status %d", ErrBlocked, result.Status)
	}
	if result.Status < 200 || result.Status >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, result.Status)
	}

	raw, err := parseEnvelope([]byte(result.Body))
	if err != nil {
		return nil, err
	}
	return ParseAvailability(raw)
}

// jsString renders the marshaled request body as a JavaScript string literal.
func jsString(body []byte) string {
	quoted, _ := json.Marshal(string(body))
	return string(quoted)
}

// looksChallenged spots Cloudflare challenge pages returned in place of JSON.
func looksChallenged(body string) bool {
	return strings.Contains(body, "cf-chl") || strings.Contains(body, "Just a moment")
}

package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

const idlePoll = 100 * time.Millisecond

// chromeDriver drives one tab of a remote browser over CDP.
type chromeDriver struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	tracker     *idleTracker
}

func connectChrome(ctx context.Context, wsURL string, s Settings) (driver, error) {
	// The tab outlives the caller's context; Close ends it.
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), wsURL, chromedp.NoModifyURL)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	d := &chromeDriver{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		tracker:     newIdleTracker(time.Now),
	}
	chromedp.ListenTarget(tab, d.tracker.observe)

	// The first Run binds the websocket connection to the context it gets,
	// so it must be the tab itself. ctx only bounds how long we wait.
	attached := make(chan error, 1)
	go func() { attached <- chromedp.Run(tab) }()
	select {
	case err := <-attached:
		if err != nil {
			_ = d.Close()
			return nil, eris.Wrap(err, "attach tab")
		}
	case <-ctx.Done():
		_ = d.Close()
		return nil, eris.Wrap(ctx.Err(), "attach tab")
	}

	runCtx, cancel := d.scope(ctx)
	defer cancel()
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(s.ViewportWidth), int64(s.ViewportHeight)),
	)
	if err != nil {
		_ = d.Close()
		return nil, eris.Wrap(err, "configure tab")
	}
	return d, nil
}

// scope derives a run context from the tab that also honours ctx's deadline
// and cancellation.
func (d *chromeDriver) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(d.tab)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := d.scope(ctx)
	defer cancel()
	d.tracker.reset()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

func (d *chromeDriver) WaitNetworkIdle(ctx context.Context, window time.Duration) error {
	if window <= 0 {
		return nil
	}
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		if d.tracker.idleFor(window) {
			return nil
		}
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "wait for network idle")
		case <-ticker.C:
		}
	}
}

func (d *chromeDriver) Content(ctx context.Context) (string, string, error) {
	runCtx, cancel := d.scope(ctx)
	defer cancel()

	var html, location string
	err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", eris.Wrap(err, "read page content")
	}
	return html, location, nil
}

func (d *chromeDriver) Close() error {
	err := chromedp.Cancel(d.tab)
	d.cancelTab()
	d.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return eris.Wrap(err, "close tab")
	}
	return nil
}

// idleTracker counts in-flight requests from CDP network events.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	now      func() time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	return &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		last:     now(),
		now:      now,
	}
}

func (t *idleTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = t.now()
}

func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.inflight)
	t.last = t.now()
}

// idleFor reports whether no request has been in flight for at least window.
func (t *idleTracker) idleFor(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= window
}

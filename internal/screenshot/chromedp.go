package screenshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1200
	pollInterval   = 250 * time.Millisecond
)

// ChromeOptions configures the headless Chrome launcher.
type ChromeOptions struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath  string
	NoSandbox bool
}

// ChromeBrowser launches a fresh headless Chrome for every page.
type ChromeBrowser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

var _ Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser prepares an allocator bound to ctx. No process is started
// until NewPage is called.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions, logger *zap.Logger) *ChromeBrowser {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	return &ChromeBrowser{allocCtx: allocCtx, cancel: cancel, logger: logger}
}

// NewPage starts a browser and returns its first tab.
func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			b.logger.Debug("chromedp", zap.String("error", fmt.Sprintf(format, args...)))
		}),
	)

	// The first Run allocates the browser and ties its lifetime to the
	// context it runs on, so it must use tabCtx itself.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	p := &chromePage{ctx: tabCtx, cancel: cancel}
	if err := p.run(ctx, chromedp.EmulateViewport(viewportWidth, viewportHeight)); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return p, nil
}

// Close stops the allocator and any browser still running.
func (b *ChromeBrowser) Close() {
	b.cancel()
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by the deadline and cancellation
// of the caller's ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) WaitURL(ctx context.Context, url string) error {
	var ok bool
	expr := fmt.Sprintf("window.location.href.startsWith(%s)", jsString(url))
	return p.run(ctx, chromedp.Poll(expr, &ok, chromedp.WithPollingInterval(pollInterval)))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%s).length", jsString(selector))
	if err := p.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) throw new Error("no element matches selector");
		return el.innerText;
	})()`, jsString(selector))
	if err := p.run(ctx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (p *chromePage) CaptureFull(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) CaptureClip(ctx context.Context, clip domain.ClipRect) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      clip.X,
				Y:      clip.Y,
				Width:  clip.Width,
				Height: clip.Height,
				Scale:  1,
			}).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) CaptureElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close shuts down the tab and the browser that owns it.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

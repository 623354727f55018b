package chromedp_capturer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
)

// Quality 100 makes chromedp return PNG rather than JPEG.
const screenshotQuality = 100

type ChromedpCapturer struct {
	allocatorPool *sync.Pool
	timeout       time.Duration
	browserLog    *zap.SugaredLogger

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewChromedpCapturer creates a new capturer implementation using chromedp.
func NewChromedpCapturer(maxConcurrency int, pageLoadTimeout time.Duration, browserLog *zap.SugaredLogger) *ChromedpCapturer {
	c := &ChromedpCapturer{
		timeout:    pageLoadTimeout,
		browserLog: browserLog,
	}
	c.allocatorPool = &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.WindowSize(1366, 900),
				chromedp.UserAgent(`Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36`),
			)
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
			c.mu.Lock()
			c.cancels = append(c.cancels, cancel)
			c.mu.Unlock()
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := c.allocatorPool.Get().(context.Context)
		c.allocatorPool.Put(allocCtx)
	}
	return c
}

// Capture renders url and returns its outer HTML with a full-page PNG screenshot.
func (c *ChromedpCapturer) Capture(ctx context.Context, url string) (*entity.Snapshot, error) {
	allocCtx := c.allocatorPool.Get().(context.Context)
	defer c.allocatorPool.Put(allocCtx)

	var opts []chromedp.ContextOption
	if c.browserLog != nil {
		opts = append(opts, chromedp.WithLogf(c.browserLog.Debugf), chromedp.WithErrorf(c.browserLog.Errorf))
	}
	taskCtx, cancel := chromedp.NewContext(allocCtx, opts...)
	defer cancel()

	// The browser context must not outlive the caller.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, c.timeout)
	defer cancelTimeout()

	var (
		statusMu   sync.Mutex
		statusCode int
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			statusMu.Lock()
			if statusCode == 0 {
				statusCode = int(resp.Response.Status)
			}
			statusMu.Unlock()
		}
	})

	var (
		dom        string
		screenshot []byte
	)
	startTime := time.Now()
	if err := chromedp.Run(taskCtx, chromedp.Navigate(url)); err != nil {
		return nil, c.classify(taskCtx, url, repository.ErrNavigationFailed, err)
	}
	err := chromedp.Run(taskCtx,
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
		chromedp.FullScreenshot(&screenshot, screenshotQuality),
	)
	responseTime := time.Since(startTime).Milliseconds()
	if err != nil {
		return nil, c.classify(taskCtx, url, repository.ErrCaptureFailed, err)
	}

	statusMu.Lock()
	code := statusCode
	statusMu.Unlock()

	slog.Info("Captured page", "url", url, "status", code, "response_time_ms", responseTime, "screenshot_bytes", len(screenshot))
	return &entity.Snapshot{
		ID:             uuid.NewString(),
		URL:            url,
		DOM:            dom,
		Screenshot:     screenshot,
		HTTPStatusCode: code,
		ResponseTimeMS: int(responseTime),
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// Close releases every browser allocator created by the pool.
func (c *ChromedpCapturer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}

func (c *ChromedpCapturer) classify(taskCtx context.Context, url string, kind, err error) error {
	if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		kind = repository.ErrCaptureTimeout
	}
	slog.Error("Failed to capture URL", "url", url, "error", err)
	return fmt.Errorf("%w: %s: %v", kind, url, err)
}

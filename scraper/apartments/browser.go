package apartments

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// actionTimeout bounds a single navigation or DOM read.
const actionTimeout = 90 * time.Second

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Browser is a scoped page session. The harvester acquires one per run and
// always closes it.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a Browser.
type Launcher func(ctx context.Context) (Browser, error)

type chromeBrowser struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// LaunchChrome returns a Launcher backed by a headless Chrome driven through
// chromedp. An empty chromeBin falls back to binary discovery.
func LaunchChrome(chromeBin string) Launcher {
	return func(ctx context.Context) (Browser, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent(userAgent),
		)
		if bin := findChromeBinary(chromeBin); bin != "" {
			opts = append(opts, chromedp.ExecPath(bin))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

		// Suppress chromedp log noise
		tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

		// Run with no actions starts the browser and opens the tab.
		if err := chromedp.Run(tab); err != nil {
			cancelTab()
			cancelAlloc()
			return nil, fmt.Errorf("apartments: start browser: %w", err)
		}

		return &chromeBrowser{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
	}
}

func (b *chromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.tab, actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *chromeBrowser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("apartments: navigate %s: %w", url, err)
	}
	return nil
}

func (b *chromeBrowser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("apartments: read page html: %w", err)
	}
	return html, nil
}

func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.tab)
	b.cancelTab()
	b.cancelAlloc()
	if err != nil {
		return fmt.Errorf("apartments: close browser: %w", err)
	}
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary. An explicit path wins,
// then CHROME_BIN, then PATH lookup, then well-known install locations.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

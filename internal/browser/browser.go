// Package browser wraps go-rod behind scoped page acquisition. One Chrome
// process is shared per Manager, but every operation gets its own
// incognito context and page, released on every exit path. Concurrent
// tool calls never share a session.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config holds browser settings.
type Config struct {
	Bin              string `yaml:"bin" mapstructure:"bin"`
	Headless         bool   `yaml:"headless" mapstructure:"headless"`
	NavTimeoutSecs   int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	StabilizeDelayMS int    `yaml:"stabilize_delay_ms" mapstructure:"stabilize_delay_ms"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
}

// NavTimeout returns the per-navigation timeout.
func (c Config) NavTimeout() time.Duration {
	if c.NavTimeoutSecs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.NavTimeoutSecs) * time.Second
}

// StabilizeDelay is how long to wait after load for dynamic content.
func (c Config) StabilizeDelay() time.Duration {
	if c.StabilizeDelayMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.StabilizeDelayMS) * time.Millisecond
}

// Manager owns the shared Chrome process and hands out scoped pages.
type Manager struct {
	cfg      Config
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewManager creates a Manager. The browser is launched lazily on first use.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// ensureStarted launches Chrome and connects if not already connected.
func (m *Manager) ensureStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		_ = m.browser.Close()
		m.browser = nil
	}

	l := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return eris.Wrap(err, "browser: connect")
	}

	m.browser = b
	m.launcher = l
	return nil
}

// Start launches the browser eagerly so the first tool call does not pay
// the startup cost, and so launch failures surface before the agent loop.
func (m *Manager) Start() error {
	return m.ensureStarted()
}

// WithPage opens a fresh incognito page, navigates to url, waits for the
// page to settle, runs fn, and closes the page and its incognito context
// on every exit path (including panics inside fn).
func (m *Manager) WithPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	if err := m.ensureStarted(); err != nil {
		return err
	}

	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()

	incognito, err := b.Incognito()
	if err != nil {
		return eris.Wrap(err, "browser: incognito context")
	}
	defer func() {
		dispose := proto.TargetDisposeBrowserContext{BrowserContextID: incognito.BrowserContextID}
		if cerr := dispose.Call(incognito); cerr != nil {
			zap.L().Debug("browser: dispose incognito context", zap.Error(cerr))
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return eris.Wrap(err, "browser: create page")
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			zap.L().Debug("browser: page close", zap.Error(cerr))
		}
	}()

	page = page.Context(ctx).Timeout(m.cfg.NavTimeout())

	if ua := m.cfg.UserAgent; ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			zap.L().Debug("browser: set user agent", zap.Error(err))
		}
	}

	if err := page.Navigate(url); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return eris.Wrapf(err, "browser: wait load %s", url)
	}

	// Give client-side rendering a moment to settle.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.cfg.StabilizeDelay()):
	}

	return fn(page)
}

// Close shuts down the shared browser process.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	if m.launcher != nil {
		m.launcher.Cleanup()
	}
	m.browser = nil
	m.launcher = nil
	return eris.Wrap(err, "browser: close")
}

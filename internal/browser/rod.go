package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/nao1215/orphanscan/internal/log"
)

// DefaultNavigationTimeout bounds a single page load including the wait
// for network idle.
const DefaultNavigationTimeout = 60 * time.Second

// Config holds the options of a RodDriver.
type Config struct {
	// Bin is the path of the Chrome/Chromium binary.
	// When empty, rod looks up a local browser or downloads one.
	Bin string

	// Headless runs the browser without a window.
	Headless bool

	// NoSandbox disables the Chrome sandbox (needed in some containers).
	NoSandbox bool

	// NavigationTimeout bounds each Navigate call. Zero means
	// DefaultNavigationTimeout.
	NavigationTimeout time.Duration

	// Headers are extra HTTP headers sent with every request of the page.
	Headers map[string]string

	// Cookie is sent as the Cookie header when not empty.
	Cookie string

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a headless configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// RodDriver launches Chrome through go-rod.
type RodDriver struct {
	cfg Config
}

// NewRodDriver creates a RodDriver with the given configuration.
func NewRodDriver(cfg Config) *RodDriver {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RodDriver{cfg: cfg}
}

// Launch starts Chrome, connects to it and opens a blank page.
func (d *RodDriver) Launch(ctx context.Context) (Session, error) {
	l := launcher.New().Headless(d.cfg.Headless)
	if d.cfg.Bin != "" {
		l = l.Bin(d.cfg.Bin)
	}
	if d.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	d.cfg.Logger.Debug("chrome launched",
		"controlURL", controlURL,
		log.Headers("headers", d.cfg.Headers),
		"cookie", d.cfg.Cookie,
	)

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("create page: %w", err)
	}

	s := &rodSession{
		cfg:      d.cfg,
		launcher: l,
		browser:  b,
		page:     page,
	}

	if headers := d.headerPairs(); len(headers) > 0 {
		cleanup, err := page.SetExtraHeaders(headers)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("set extra headers: %w", err)
		}
		s.clearHeaders = cleanup
	}

	return s, nil
}

// headerPairs flattens the configured headers into the name/value list
// rod expects, sorted by name for a stable request order.
func (d *RodDriver) headerPairs() []string {
	names := make([]string, 0, len(d.cfg.Headers))
	for name := range d.cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names)+2)
	for _, name := range names {
		pairs = append(pairs, name, d.cfg.Headers[name])
	}
	if d.cfg.Cookie != "" {
		pairs = append(pairs, "Cookie", d.cfg.Cookie)
	}
	return pairs
}

// rodSession is a Session backed by a single rod page.
type rodSession struct {
	cfg          Config
	launcher     *launcher.Launcher
	browser      *rod.Browser
	page         *rod.Page
	clearHeaders func()

	mu     sync.Mutex
	closed bool
}

func (s *rodSession) livePage(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.page.Context(ctx), nil
}

// SetViewport overrides the device metrics of the page.
func (s *rodSession) SetViewport(ctx context.Context, width, height int) error {
	page, err := s.livePage(ctx)
	if err != nil {
		return err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		return fmt.Errorf("set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Navigate loads url and waits for the networkIdle lifecycle event.
func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page, err := s.livePage(ctx)
	if err != nil {
		return err
	}
	page = page.Timeout(s.cfg.NavigationTimeout)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	wait()

	if err := page.GetContext().Err(); err != nil {
		return fmt.Errorf("wait for network idle on %s: %w", url, err)
	}
	return nil
}

// QueryAll runs querySelectorAll on the page.
func (s *rodSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	page, err := s.livePage(ctx)
	if err != nil {
		return nil, err
	}
	els, err := page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	result := make([]Element, len(els))
	for i, el := range els {
		result[i] = &rodElement{el: el}
	}
	return result, nil
}

// Close closes the browser and removes the launcher's temporary profile.
// Calling Close more than once is a no-op.
func (s *rodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.clearHeaders != nil {
		s.clearHeaders()
	}
	err := s.browser.Close()
	s.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// rodElement is an Element backed by a rod element handle.
type rodElement struct {
	el *rod.Element
}

// Evaluate runs js by value with the element as this.
func (e *rodElement) Evaluate(ctx context.Context, js string, out any) error {
	res, err := e.el.Context(ctx).Evaluate(rod.Eval(js))
	if err != nil {
		return fmt.Errorf("evaluate in page: %w", err)
	}
	if res == nil || out == nil {
		return nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("read evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	return nil
}

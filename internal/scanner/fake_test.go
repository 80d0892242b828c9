package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/model"
)

// layout maps a selector to the measurements of its matched elements.
type layout map[string][]model.Measurement

// fakeDriver is an in-memory browser.Driver. The page it serves has one
// layout per viewport width.
type fakeDriver struct {
	layouts   map[int]layout
	launchErr error
	navErr    error
	queryErr  error
	evalErr   error

	mu       sync.Mutex
	sessions []*fakeSession
}

func (d *fakeDriver) Launch(context.Context) (browser.Session, error) {
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	s := &fakeSession{driver: d}
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDriver) session() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

// fakeSession records every call made against it.
type fakeSession struct {
	driver *fakeDriver
	width  int
	loaded bool
	calls  []string
	closed int
}

func (s *fakeSession) SetViewport(_ context.Context, width, height int) error {
	s.calls = append(s.calls, fmt.Sprintf("viewport %dx%d", width, height))
	s.width = width
	s.loaded = false
	return nil
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.calls = append(s.calls, "navigate "+url)
	if s.driver.navErr != nil {
		return s.driver.navErr
	}
	s.loaded = true
	return nil
}

func (s *fakeSession) QueryAll(_ context.Context, selector string) ([]browser.Element, error) {
	s.calls = append(s.calls, "query "+selector)
	if s.driver.queryErr != nil {
		return nil, s.driver.queryErr
	}
	if !s.loaded {
		return nil, fmt.Errorf("query %q before navigation", selector)
	}
	ms := s.driver.layouts[s.width][selector]
	els := make([]browser.Element, len(ms))
	for i := range ms {
		els[i] = &fakeElement{session: s, m: ms[i]}
	}
	return els, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeElement struct {
	session *fakeSession
	m       model.Measurement
}

func (e *fakeElement) Evaluate(_ context.Context, _ string, out any) error {
	if e.session.driver.evalErr != nil {
		return e.session.driver.evalErr
	}
	raw, err := json.Marshal(e.m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// measure lays out rows of text 24px apart, starting at top 0.
func measure(width float64, rows ...string) model.Measurement {
	m := model.Measurement{ClientWidth: width}
	for row, text := range rows {
		i := 0
		for _, r := range text {
			m.Positions = append(m.Positions, model.TextPosition{
				Index: i,
				Top:   float64(row * 24),
				Char:  string(r),
			})
			i++
		}
	}
	return m
}

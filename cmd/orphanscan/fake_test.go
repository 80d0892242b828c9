package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/model"
)

// fakeDriver serves canned measurements keyed by viewport width and selector.
type fakeDriver struct {
	pages     map[int]map[string][]model.Measurement
	launchErr error

	// launches receives a value per successful Launch when not nil.
	launches chan struct{}

	mu       sync.Mutex
	launched int
	closed   int
}

func (d *fakeDriver) Launch(context.Context) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	d.launched++
	if d.launches != nil {
		d.launches <- struct{}{}
	}
	return &fakeSession{driver: d}, nil
}

type fakeSession struct {
	driver *fakeDriver
	width  int
}

func (s *fakeSession) SetViewport(_ context.Context, width, _ int) error {
	s.width = width
	return nil
}

func (s *fakeSession) Navigate(context.Context, string) error { return nil }

func (s *fakeSession) QueryAll(_ context.Context, selector string) ([]browser.Element, error) {
	ms := s.driver.pages[s.width][selector]
	els := make([]browser.Element, len(ms))
	for i, m := range ms {
		els[i] = fakeElement{m: m}
	}
	return els, nil
}

func (s *fakeSession) Close() error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	s.driver.closed++
	return nil
}

type fakeElement struct {
	m model.Measurement
}

func (e fakeElement) Evaluate(_ context.Context, _ string, out any) error {
	data, err := json.Marshal(e.m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// measure lays out rows 24px apart, one position per character.
func measure(width float64, rows ...string) model.Measurement {
	m := model.Measurement{ClientWidth: width}
	for row, text := range rows {
		for i, r := range []rune(text) {
			m.Positions = append(m.Positions, model.TextPosition{
				Node:  row,
				Index: i,
				Top:   float64(100 + row*24),
				Char:  string(r),
			})
		}
	}
	return m
}

// heroDriver renders .hero-description on one line at PC width and as
// "Discover our" / "amazing new" / "spa" at SP width.
func heroDriver() *fakeDriver {
	return &fakeDriver{
		pages: map[int]map[string][]model.Measurement{
			1200: {".hero-description": {measure(800, "Discover our amazing new spa")}},
			375:  {".hero-description": {measure(342.5, "Discover our ", "amazing new ", "spa")}},
		},
	}
}

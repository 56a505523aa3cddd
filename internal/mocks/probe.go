// File: internal/mocks/probe.go
package mocks

import (
	"context"
	"regexp"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/birdclip/internal/browser"
)

// MockPageProbe is a testify mock of browser.PageProbe.
type MockPageProbe struct {
	mock.Mock
}

var _ browser.PageProbe = (*MockPageProbe)(nil)

func (m *MockPageProbe) ActiveTab(ctx context.Context, pattern *regexp.Regexp) (browser.Tab, error) {
	args := m.Called(ctx, pattern)
	return args.Get(0).(browser.Tab), args.Error(1)
}

func (m *MockPageProbe) EvalInTab(ctx context.Context, tab browser.Tab, expr string, out any) error {
	args := m.Called(ctx, tab, expr, out)
	return args.Error(0)
}

func (m *MockPageProbe) Cookies(ctx context.Context, domain string) ([]browser.Cookie, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]browser.Cookie), args.Error(1)
}

func (m *MockPageProbe) Cookie(ctx context.Context, domain, name string) (string, bool, error) {
	args := m.Called(ctx, domain, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

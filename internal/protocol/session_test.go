package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/birdclip/internal/browser"
	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/media"
	"github.com/xkilldash9x/birdclip/internal/mocks"
	"github.com/xkilldash9x/birdclip/internal/scrape"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) EnsureFresh(ctx context.Context) (scrape.Environment, error) {
	args := m.Called(ctx)
	return args.Get(0).(scrape.Environment), args.Error(1)
}

type mockReconstituter struct{ mock.Mock }

func (m *mockReconstituter) Reconstitute(ctx context.Context, rec scrape.Record) (scrape.Environment, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(scrape.Environment), args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, env scrape.Environment, tweetID, authorHandle string) ([]media.VideoVariant, error) {
	args := m.Called(ctx, env, tweetID, authorHandle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]media.VideoVariant), args.Error(1)
}

type emitted struct {
	msgs []Message
}

func (e *emitted) emit(msg Message) error {
	e.msgs = append(e.msgs, msg)
	return nil
}

func (e *emitted) single(t *testing.T) Message {
	t.Helper()
	require.Len(t, e.msgs, 1)
	return e.msgs[0]
}

func testRecord() scrape.Record {
	return scrape.Record{
		BundleURL:           "https://abs.twimg.com/responsive-web/client-web/main.aaaa1111.js",
		AuthToken:           "AAAAAAAtoken",
		QueryIDsByOperation: map[string]string{"TweetDetail": "qid-1"},
	}
}

func testEnvironment() scrape.Environment {
	return scrape.Environment{
		Record:       testRecord(),
		CSRFToken:    "csrf",
		CookieHeader: "auth_token=secret; ct0=csrf",
	}
}

func newTestSession(t *testing.T, deps Deps) *Session {
	t.Helper()
	deps.Logger = zaptest.NewLogger(t)
	return NewSession(deps, "test-conn")
}

func TestSetupEmitsEnvironmentAndAdvances(t *testing.T) {
	cache := new(mockProvider)
	cache.On("EnsureFresh", mock.Anything).Return(testEnvironment(), nil)

	s := newTestSession(t, Deps{Cache: cache})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), Message{Type: TypeSetupEnvironment}, out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeCompleteEnvironmentSetup, msg.Type)

	var payload EnvironmentPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, testRecord(), payload.Environment)
	assert.Equal(t, StateAwaitingVideos, s.State())
}

func TestSetupNotLoggedInIsInfo(t *testing.T) {
	cache := new(mockProvider)
	cache.On("EnsureFresh", mock.Anything).
		Return(scrape.Environment{}, faults.NotLoggedIn("identity cookie absent"))

	s := newTestSession(t, Deps{Cache: cache})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), Message{Type: TypeSetupEnvironment}, out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveInfo, msg.Type)
	var payload InfoPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, InfoNotLoggedIn, payload.Name)
}

func TestSetupTabNotFoundIsInfo(t *testing.T) {
	cache := new(mockProvider)
	cache.On("EnsureFresh", mock.Anything).
		Return(scrape.Environment{}, faults.TabNotFound("no open tab"))

	s := newTestSession(t, Deps{Cache: cache})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), Message{Type: TypeSetupEnvironment}, out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveInfo, msg.Type)
	var payload InfoPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, InfoTabNotFound, payload.Name)
}

func TestSetupStructuralBreakIsError(t *testing.T) {
	cache := new(mockProvider)
	cache.On("EnsureFresh", mock.Anything).
		Return(scrape.Environment{}, faults.AppStructureChanged("no bearer token literal in bundle contents"))

	s := newTestSession(t, Deps{Cache: cache})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), Message{Type: TypeSetupEnvironment}, out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveError, msg.Type)
	var payload ErrorPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, "TwitterWebAppBreakingChangeError", payload.ErrorName)
	assert.Contains(t, payload.ErrorMessage, "bearer token")
}

func requestMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage(TypeRequestVideos, EnvironmentPayload{Environment: testRecord()})
	require.NoError(t, err)
	return msg
}

func TestRequestOnNonStatusTabIsInfoNeverError(t *testing.T) {
	probe := new(mocks.MockPageProbe)
	probe.On("ActiveTab", mock.Anything, mock.Anything).
		Return(browser.Tab{URL: "https://twitter.com/home"}, nil)

	s := newTestSession(t, Deps{Probe: probe})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), requestMessage(t), out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveInfo, msg.Type)
	var payload InfoPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, InfoTabNotFound, payload.Name)
}

func TestRequestZeroVideosIsVideosNotFound(t *testing.T) {
	probe := new(mocks.MockPageProbe)
	probe.On("ActiveTab", mock.Anything, mock.Anything).
		Return(browser.Tab{URL: "https://twitter.com/some_user/status/123456"}, nil)

	rec := new(mockReconstituter)
	rec.On("Reconstitute", mock.Anything, testRecord()).Return(testEnvironment(), nil)

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, testEnvironment(), "123456", "some_user").
		Return([]media.VideoVariant{}, nil)

	s := newTestSession(t, Deps{Probe: probe, Scraper: rec, Query: fetcher})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), requestMessage(t), out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveInfo, msg.Type)
	var payload InfoPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, InfoVideosNotFound, payload.Name)
	assert.Equal(t, StateDone, s.State())
}

func TestRequestDeliversVideos(t *testing.T) {
	videos := []media.VideoVariant{
		{BitrateBps: 2000000, ContentType: "video/mp4", URL: "https://video/2m.mp4"},
		{BitrateBps: 500000, ContentType: "video/mp4", URL: "https://video/500k.mp4"},
	}

	probe := new(mocks.MockPageProbe)
	probe.On("ActiveTab", mock.Anything, mock.Anything).
		Return(browser.Tab{URL: "https://twitter.com/some_user/status/123456"}, nil)

	rec := new(mockReconstituter)
	rec.On("Reconstitute", mock.Anything, testRecord()).Return(testEnvironment(), nil)

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, testEnvironment(), "123456", "some_user").Return(videos, nil)

	s := newTestSession(t, Deps{Probe: probe, Scraper: rec, Query: fetcher})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), requestMessage(t), out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveVideos, msg.Type)
	var payload VideosPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, videos, payload.Videos)
	assert.Equal(t, StateDone, s.State())
}

func TestRequestStructuralBreakIsError(t *testing.T) {
	probe := new(mocks.MockPageProbe)
	probe.On("ActiveTab", mock.Anything, mock.Anything).
		Return(browser.Tab{URL: "https://twitter.com/some_user/status/123456"}, nil)

	rec := new(mockReconstituter)
	rec.On("Reconstitute", mock.Anything, testRecord()).Return(testEnvironment(), nil)

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, testEnvironment(), "123456", "some_user").
		Return(nil, faults.AppStructureChanged("no video-typed nodes findable in TweetDetail payload"))

	s := newTestSession(t, Deps{Probe: probe, Scraper: rec, Query: fetcher})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), requestMessage(t), out.emit))

	msg := out.single(t)
	assert.Equal(t, TypeReceiveError, msg.Type)
	var payload ErrorPayload
	require.NoError(t, msg.DecodePayload(&payload))
	assert.Equal(t, "TwitterWebAppBreakingChangeError", payload.ErrorName)
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	s := newTestSession(t, Deps{})
	var out emitted
	require.NoError(t, s.Handle(context.Background(), Message{Type: "DOWNLOAD_EVERYTHING"}, out.emit))
	assert.Empty(t, out.msgs)
	assert.Equal(t, StateIdle, s.State())
}

// File: internal/protocol/session.go
package protocol

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/browser"
	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/media"
	"github.com/xkilldash9x/birdclip/internal/scrape"
)

// State tracks where a session is in the setup-then-request flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingEnvironment
	StateAwaitingVideos
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingEnvironment:
		return "awaiting_environment"
	case StateAwaitingVideos:
		return "awaiting_videos"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// EnvironmentProvider yields a usable environment, building or reusing a
// cached record as needed. *envcache.Cache satisfies it.
type EnvironmentProvider interface {
	EnsureFresh(ctx context.Context) (scrape.Environment, error)
}

// Reconstituter attaches live session fields to a record that arrived over
// the channel. *scrape.Scraper satisfies it.
type Reconstituter interface {
	Reconstitute(ctx context.Context, rec scrape.Record) (scrape.Environment, error)
}

// VideoFetcher calls the upstream detail endpoint. *media.Query satisfies it.
type VideoFetcher interface {
	Fetch(ctx context.Context, env scrape.Environment, tweetID, authorHandle string) ([]media.VideoVariant, error)
}

// Deps bundles what every session needs.
type Deps struct {
	Cache   EnvironmentProvider
	Scraper Reconstituter
	Probe   browser.PageProbe
	Query   VideoFetcher
	Logger  *zap.Logger
}

// Session is the per-connection state machine. One session serves one UI
// channel; sessions share no mutable state with each other. Handle is
// called from a single reader goroutine, so no lock guards the state.
type Session struct {
	deps  Deps
	state State
	log   *zap.Logger
}

// NewSession starts a session in the idle state.
func NewSession(deps Deps, connID string) *Session {
	return &Session{
		deps: deps,
		log:  deps.Logger.Named("session").With(zap.String("conn_id", connID)),
	}
}

// State reports the current machine state, for tests and logging.
func (s *Session) State() State { return s.state }

// Emit sends one core-to-UI message. Implementations must be safe to call
// from the session's handler goroutine.
type Emit func(Message) error

// Handle dispatches one inbound message. Failures inside a handler are
// translated to info or error signals and never returned; the only errors
// returned are emit failures, which mean the channel itself is gone.
func (s *Session) Handle(ctx context.Context, msg Message, emit Emit) error {
	switch msg.Type {
	case TypeSetupEnvironment:
		return s.handleSetup(ctx, emit)
	case TypeRequestVideos:
		return s.handleRequest(ctx, msg, emit)
	default:
		s.log.Warn("Ignoring message of unknown type.",
			zap.String("type", string(msg.Type)), zap.Stringer("state", s.state))
		return nil
	}
}

func (s *Session) handleSetup(ctx context.Context, emit Emit) error {
	s.state = StateAwaitingEnvironment

	env, err := s.deps.Cache.EnsureFresh(ctx)
	if err != nil {
		return s.emitFailure(err, emit)
	}

	reply, err := NewMessage(TypeCompleteEnvironmentSetup, EnvironmentPayload{Environment: env.Record})
	if err != nil {
		return s.emitFailure(err, emit)
	}
	if err := emit(reply); err != nil {
		return err
	}
	s.state = StateAwaitingVideos
	return nil
}

func (s *Session) handleRequest(ctx context.Context, msg Message, emit Emit) error {
	var payload EnvironmentPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return s.emitFailure(err, emit)
	}

	handle, tweetID, err := s.activeStatusTab(ctx)
	if err != nil {
		return s.emitFailure(err, emit)
	}

	env, err := s.deps.Scraper.Reconstitute(ctx, payload.Environment)
	if err != nil {
		return s.emitFailure(err, emit)
	}

	videos, err := s.deps.Query.Fetch(ctx, env, tweetID, handle)
	if err != nil {
		return s.emitFailure(err, emit)
	}

	if len(videos) == 0 {
		if err := s.emitInfo(emit, InfoVideosNotFound, "no downloadable videos in this tweet"); err != nil {
			return err
		}
		s.state = StateDone
		return nil
	}

	reply, err := NewMessage(TypeReceiveVideos, VideosPayload{Videos: videos})
	if err != nil {
		return s.emitFailure(err, emit)
	}
	if err := emit(reply); err != nil {
		return err
	}
	s.state = StateDone
	return nil
}

// activeStatusTab resolves (authorHandle, tweetId) from the active tab. A
// matching-domain tab that is not on a status page is reported the same way
// as no tab at all: switch tabs and try again.
func (s *Session) activeStatusTab(ctx context.Context) (handle, tweetID string, err error) {
	tab, err := s.deps.Probe.ActiveTab(ctx, scrape.TabURLPattern)
	if err != nil {
		return "", "", err
	}
	m := scrape.StatusURLPattern.FindStringSubmatch(tab.URL)
	if m == nil {
		return "", "", faults.TabNotFound("active tab %s is not a status page", tab.URL)
	}
	return m[1], m[2], nil
}

// emitFailure maps a failure kind to its user-facing signal. Recoverable
// conditions become info signals; everything else becomes an error signal
// carrying the underlying message.
func (s *Session) emitFailure(err error, emit Emit) error {
	switch faults.KindOf(err) {
	case faults.KindTabNotFound:
		s.log.Info("No usable tab for this request.", zap.Error(err))
		return s.emitInfo(emit, InfoTabNotFound, err.Error())
	case faults.KindNotLoggedIn:
		s.log.Info("Session is not logged in.", zap.Error(err))
		return s.emitInfo(emit, InfoNotLoggedIn, err.Error())
	default:
		s.log.Error("Handler failed.", zap.Stringer("state", s.state), zap.Error(err))
		msg, mErr := NewMessage(TypeReceiveError, ErrorPayload{
			ErrorName:    faults.KindOf(err).String(),
			ErrorMessage: err.Error(),
		})
		if mErr != nil {
			return mErr
		}
		return emit(msg)
	}
}

func (s *Session) emitInfo(emit Emit, name, detail string) error {
	msg, err := NewMessage(TypeReceiveInfo, InfoPayload{Name: name, Message: detail})
	if err != nil {
		return err
	}
	return emit(msg)
}

// File: internal/protocol/messages.go

// Package protocol carries the UI-facing message channel: a small tagged
// message set over a persistent connection, and the per-connection state
// machine that services it.
package protocol

import (
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/birdclip/internal/media"
	"github.com/xkilldash9x/birdclip/internal/scrape"
)

// MessageType discriminates the envelope.
type MessageType string

const (
	// UI to core.
	TypeSetupEnvironment MessageType = "SETUP_TWITTER_ENVIRONMENT"
	TypeRequestVideos    MessageType = "REQUEST_TWITTER_VIDEOS"

	// Core to UI.
	TypeCompleteEnvironmentSetup MessageType = "COMPLETE_TWITTER_ENVIRONMENT_SETUP"
	TypeReceiveVideos            MessageType = "RECEIVE_TWITTER_VIDEOS"
	TypeReceiveInfo              MessageType = "RECEIVE_INFO_MESSAGE"
	TypeReceiveError             MessageType = "RECEIVE_ERROR_MESSAGE"
)

// Info signal names surfaced to the user. These are recoverable or benign
// conditions, never maintenance-needed errors.
const (
	InfoTabNotFound    = "TabNotFoundError"
	InfoNotLoggedIn    = "TwitterNotLoggedInError"
	InfoVideosNotFound = "VideosNotFound"
)

// Message is the wire envelope. Payload shape depends on Type.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EnvironmentPayload carries the cached record through the channel in both
// directions. Live session fields never ride along; the receiving side
// re-fetches them.
type EnvironmentPayload struct {
	Environment scrape.Record `json:"environment"`
}

// VideosPayload carries the ranked variant list to the UI.
type VideosPayload struct {
	Videos []media.VideoVariant `json:"videos"`
}

// InfoPayload is a user-facing notice.
type InfoPayload struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload is a user-facing failure report.
type ErrorPayload struct {
	ErrorName    string `json:"errorName,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// NewMessage wraps a payload into an envelope.
func NewMessage(t MessageType, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return Message{Type: t, Payload: raw}, nil
}

// DecodePayload unmarshals the envelope payload into out.
func (m Message) DecodePayload(out any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message %s carries no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Type, err)
	}
	return nil
}

package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTabNotFound, KindOf(TabNotFound("no tab")))
	assert.Equal(t, KindNotLoggedIn, KindOf(NotLoggedIn("no cookie")))
	assert.Equal(t, KindAppStructureChanged, KindOf(AppStructureChanged("regex miss")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotLoggedIn("session cookie absent")
	wrapped := fmt.Errorf("building environment: %w", inner)

	assert.Equal(t, KindNotLoggedIn, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotLoggedIn))
	assert.False(t, Is(wrapped, KindTabNotFound))
}

func TestWrapPreservesInnerKind(t *testing.T) {
	// A fault wrapped with a different kind keeps the inner kind; layers that
	// add context must not relabel a specifically kinded failure.
	inner := TabNotFound("no twitter tab")
	outer := Wrap(KindAppStructureChanged, inner, "locating bundle")

	assert.Equal(t, KindTabNotFound, outer.Knd)
	assert.ErrorIs(t, outer, inner)
}

func TestWrapTagsPlainErrors(t *testing.T) {
	cause := errors.New("connection refused")
	f := Wrap(KindAppStructureChanged, cause, "fetching bundle")

	require.Equal(t, KindAppStructureChanged, f.Knd)
	assert.ErrorIs(t, f, cause)
	assert.Contains(t, f.Error(), "fetching bundle")
	assert.Contains(t, f.Error(), "connection refused")
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "TabNotFoundError", KindTabNotFound.String())
	assert.Equal(t, "TwitterNotLoggedInError", KindNotLoggedIn.String())
	assert.Equal(t, "TwitterWebAppBreakingChangeError", KindAppStructureChanged.String())
	assert.Equal(t, "UnknownError", KindUnknown.String())
}

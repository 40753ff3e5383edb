package serrors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"urlguard/pkg/serrors"

	"github.com/stretchr/testify/require"
)

type backendError struct{ status int }

func (e backendError) Error() string { return fmt.Sprintf("backend answered %d", e.status) }

func TestKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrNotFound,
		serrors.ErrBadRequest,
		serrors.ErrConflict,
		serrors.ErrInternal,
		serrors.ErrTimeout,
		serrors.ErrUnavailable,
		serrors.ErrRateLimited,
		serrors.ErrUpstream,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		require.False(t, seen[k.Error()], "duplicate kind %s", k)
		seen[k.Error()] = true
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("connection refused")

	for name, tc := range map[string]struct {
		err  error
		want string
	}{
		"with":      {serrors.With(serrors.ErrNotFound, "tab %d not found", 42), "tab 42 not found"},
		"wrap":      {serrors.Wrap(serrors.ErrUnavailable, cause, "check-url"), "check-url: connection refused"},
		"cause":     {serrors.Wrap(serrors.ErrUnavailable, cause, ""), "connection refused"},
		"kind only": {serrors.KindOnly(serrors.ErrTimeout), "TIMEOUT"},
		"empty":     {&serrors.Error{}, "unknown error"},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestError_IsAs(t *testing.T) {
	cause := backendError{status: 502}
	err := fmt.Errorf("could not classify: %w", serrors.Wrap(serrors.ErrUpstream, cause, "check-url"))

	require.ErrorIs(t, err, serrors.ErrUpstream)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, serrors.ErrTimeout)

	var k serrors.Kind
	require.ErrorAs(t, err, &k)
	require.Equal(t, serrors.ErrUpstream, k)

	var be backendError
	require.ErrorAs(t, err, &be)
	require.Equal(t, 502, be.status)
}

func TestError_Accessors(t *testing.T) {
	cause := context.DeadlineExceeded
	e := serrors.Wrap(serrors.ErrTimeout, cause, "classification timed out")

	require.Equal(t, serrors.ErrTimeout, e.Kind())
	require.Equal(t, "classification timed out", e.Message())
	require.Equal(t, cause, e.Cause())
	require.ErrorIs(t, e, context.DeadlineExceeded)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("could not classify: %w",
		serrors.Wrap(serrors.ErrTimeout, errors.New("deadline"), "check-url"))
	require.Equal(t, serrors.ErrTimeout, serrors.KindOf(wrapped))

	require.Equal(t, serrors.ErrUpstream, serrors.KindOf(fmt.Errorf("x: %w", serrors.ErrUpstream)))
	require.Nil(t, serrors.KindOf(errors.New("plain")))
	require.Nil(t, serrors.KindOf(nil))
}

func TestTransient(t *testing.T) {
	require.False(t, serrors.Transient(nil))
	require.False(t, serrors.Transient(serrors.With(serrors.ErrBadRequest, "invalid incident")))
	require.False(t, serrors.Transient(fmt.Errorf("x: %w", serrors.KindOnly(serrors.ErrNotFound))))

	require.True(t, serrors.Transient(serrors.KindOnly(serrors.ErrRateLimited)))
	require.True(t, serrors.Transient(serrors.KindOnly(serrors.ErrUpstream)))
	require.True(t, serrors.Transient(errors.New("plain")))
}

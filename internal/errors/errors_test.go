package errors_test

import (
	"fmt"
	"testing"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/stretchr/testify/require"
)

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func TestWrapf(t *testing.T) {
	require.NoError(t, clienterrors.Wrapf(nil, "ignored"))

	err := clienterrors.Wrapf(clienterrors.ErrNetwork, "GET %s", "/products/")
	require.EqualError(t, err, "GET /products/: network error")
	require.True(t, clienterrors.Is(err, clienterrors.ErrNetwork))
	require.False(t, clienterrors.Is(err, clienterrors.ErrNoRefreshToken))
}

func TestAs(t *testing.T) {
	err := clienterrors.Wrapf(&statusError{code: 401}, "refresh")

	var se *statusError
	require.True(t, clienterrors.As(err, &se))
	require.Equal(t, 401, se.code)
}

package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	base := New("TEST", "something failed", http.StatusTeapot)
	require.Equal(t, "something failed", base.Error())

	inner := errors.New("dial timeout")
	wrapped := base.WithInternal(inner)
	require.Equal(t, "something failed: dial timeout", wrapped.Error())
	require.ErrorIs(t, wrapped, inner)

	// WithInternal must not mutate the shared sentinel.
	require.Nil(t, base.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(NewConflict("Account already verified"))
	require.Equal(t, http.StatusConflict, appErr.StatusCode)
	require.Equal(t, "Account already verified", appErr.Message)

	plain := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, plain.Code)
	require.Equal(t, http.StatusInternalServerError, plain.StatusCode)
}

func TestWrapKeepsInternal(t *testing.T) {
	inner := errors.New("smtp refused")
	wrapped := Wrap(inner, "mail delivery failed")
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)
	require.ErrorIs(t, wrapped, inner)
}

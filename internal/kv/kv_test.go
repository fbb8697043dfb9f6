package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemRoundTrip(t *testing.T) {
	m := NewMem()

	_, err := m.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetJSON(m, "prefs.showTitles", false))
	var show bool
	require.NoError(t, GetJSON(m, "prefs.showTitles", &show))
	require.False(t, show)

	require.NoError(t, m.Delete("prefs.showTitles"))
	require.True(t, errors.Is(GetJSON(m, "prefs.showTitles", &show), ErrNotFound))
}

func TestGetJSONCorrupt(t *testing.T) {
	m := NewMem()
	require.NoError(t, m.Set("k", []byte("{not json")))

	var v map[string]any
	err := GetJSON(m, "k", &v)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

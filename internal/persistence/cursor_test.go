package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{OccurredAt: time.Date(2025, time.March, 4, 9, 0, 0, 123, time.UTC), ID: "a-1"}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.Equal(t, cursor, decoded)
}

func TestDecodeCursorEmpty(t *testing.T) {
	cursor, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, cursor)
	require.Equal(t, "", EncodeCursor(nil))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("!!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	require.Error(t, err)
}

package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "12345", CreatedAt: "2026-03-01T10:00:00Z"})
	require.NoError(t, err)

	ts, id, err := DecodeTimeIDCursor(token)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, id)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ts.UTC())
}

func TestDecodeTimeIDCursorRejectsGarbage(t *testing.T) {
	_, _, err := DecodeTimeIDCursor("not-base64!!")
	assert.Error(t, err)

	token, err := EncodeCursor(Cursor{ID: "abc", CreatedAt: "2026-03-01T10:00:00Z"})
	require.NoError(t, err)
	_, _, err = DecodeTimeIDCursor(token)
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID string }
	rows := []*row{{"3"}, {"2"}, {"1"}}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.ID })
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.ID })
	assert.False(t, info.HasMore)

	info = BuildCursorPageInfo(nil, 5, func(r *row) string { return r.ID })
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

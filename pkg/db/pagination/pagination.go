package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) *PageInfo {
	if len(data) == 0 {
		return &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	return &PageInfo{
		HasMore:       hasMore,
		NextPageToken: extractCursor(data[len(data)-1]),
	}
}

// DecodeTimeIDCursor parses a cursor into its keyset parts for queries
// ordered by (timestamp desc, id desc).
func DecodeTimeIDCursor(token string) (time.Time, int64, error) {
	cursor, err := DecodeCursor(token)
	if err != nil {
		return time.Time{}, 0, err
	}
	ts, err := time.Parse(time.RFC3339, cursor.CreatedAt)
	if err != nil {
		return time.Time{}, 0, err
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	return ts, id, nil
}

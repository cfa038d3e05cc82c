// Package pagination implements opaque cursor paging over
// created_at/id ordered result sets.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Cursor marks the last row of the previous page. Both fields are
// needed for a stable ordering when created_at collides.
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

// TrimPage expects rows fetched with limit+1; the extra row only signals
// that another page exists and is dropped from the result.
func TrimPage[T any](rows []T, limit int, extractCursor func(T) string) ([]T, PageInfo) {
	if len(rows) == 0 {
		return rows, PageInfo{}
	}

	info := PageInfo{}
	if len(rows) > limit {
		info.HasMore = true
		rows = rows[:limit]
	}
	info.NextPageToken = extractCursor(rows[len(rows)-1])
	return rows, info
}

package drive

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = fmt.Errorf("drive: invalid cursor format: %w", domain.ErrInvalidInput)

// Cursor is the opaque change-feed position handed to the core. It wraps a
// Changes API page token, which is either a start page token or a next page token.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`
	// PageToken is passed to changes.list.
	PageToken string `json:"page_token"`
}

// NewCursor creates a cursor for a page token.
func NewCursor(pageToken string) *Cursor {
	return &Cursor{
		Version:   CursorVersion,
		PageToken: pageToken,
	}
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64 string.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, ErrInvalidCursor
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}

	// Version check for future migrations
	if cursor.Version > CursorVersion || cursor.PageToken == "" {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}

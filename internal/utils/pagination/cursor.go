package pagination

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	svcErr "github.com/oggyb/discovery/internal/errors"
)

// ErrInvalidToken is returned for tokens this package did not produce.
var ErrInvalidToken = svcErr.New(svcErr.Validation, "invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// UserID + CreatedUnixNano establish a stable cursor over (created_at DESC, user_id DESC).
// The timestamp keeps full precision so rows sharing a millisecond are not skipped.
type Cursor struct {
	UserID          string `json:"user_id"`
	CreatedUnixNano int64  `json:"created_unix_nano,omitempty"`
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool { return c.UserID == "" && c.CreatedUnixNano == 0 }

// CreatedAt returns the cursor timestamp in UTC.
func (c Cursor) CreatedAt() time.Time { return time.Unix(0, c.CreatedUnixNano).UTC() }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.UserID == "" {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

package pagination

import (
	"testing"
	"time"

	svcErr "github.com/oggyb/discovery/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	token, err := Encode(Cursor{UserID: "u-1", CreatedUnixNano: at.UnixNano()})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.True(t, at.Equal(c.CreatedAt()), "sub-millisecond precision survives")
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{"!!!", "bm90IGpzb24", "e30"} { // invalid b64, "not json", "{}"
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
		assert.ErrorIs(t, err, svcErr.Validation, token)
	}
}

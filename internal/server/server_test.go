package server_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/oggyb/discovery/internal/logger"
	"github.com/oggyb/discovery/internal/server"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/discovery.v1.DiscoveryService/Like"}

func TestJSONCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(server.CodecName)
	require.NotNil(t, codec)

	type msg struct {
		UserID string `json:"user_id"`
	}
	b, err := codec.Marshal(msg{UserID: "u-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u-1"}`, string(b))

	var out msg
	require.NoError(t, codec.Unmarshal(b, &out))
	assert.Equal(t, "u-1", out.UserID)
}

func TestWithTimeoutAddsDeadline(t *testing.T) {
	icpt := server.WithTimeout(time.Second)

	_, err := icpt(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil, nil
	})
	require.NoError(t, err)

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, err = icpt(parent, nil, info, func(ctx context.Context, _ any) (any, error) {
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got, "existing deadline is kept")
		return nil, nil
	})
	require.NoError(t, err)
}

func TestRecoverTurnsPanicIntoInternal(t *testing.T) {
	icpt := server.Recover(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	_, err := icpt(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingWritesMethodAndCode(t *testing.T) {
	var buf bytes.Buffer
	icpt := server.Logging(slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := icpt(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		logger.FromContext(ctx, nil).Info("inside handler")
		return nil, status.Error(codes.NotFound, "record not found")
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "method=/discovery.v1.DiscoveryService/Like")
	assert.Contains(t, buf.String(), "code=NotFound")
	assert.Contains(t, buf.String(), `msg="inside handler" method=/discovery.v1.DiscoveryService/Like`)
}

package grpc

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPanickingHandlerReturnsInternal(t *testing.T) {
	interceptor := grpcrecovery.UnaryServerInterceptor(
		grpcrecovery.WithRecoveryHandler(panicToStatus(slog.New(slog.DiscardHandler))))

	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/im.chat.v1.ChatService/SendMsg"},
		func(context.Context, any) (any, error) { panic("boom") })

	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRecoveryLeavesPlainErrorsAlone(t *testing.T) {
	interceptor := grpcrecovery.UnaryServerInterceptor(
		grpcrecovery.WithRecoveryHandler(panicToStatus(slog.New(slog.DiscardHandler))))

	want := errors.New("ordinary failure")
	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/im.chat.v1.ChatService/SendMsg"},
		func(context.Context, any) (any, error) { return nil, want })

	assert.Equal(t, want, err)
}

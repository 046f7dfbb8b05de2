package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

type consumerFunc func(ctx context.Context) error

func (f consumerFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestNewServiceRequiresConsumer(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

func TestRunStopsWhenDependencyFails(t *testing.T) {
	ran := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: map[string]pinger{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
		Consumer: consumerFunc(func(context.Context) error {
			ran = true
			return nil
		}),
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, ran)
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:       testLogger(),
		Dependencies: map[string]pinger{"db": func(context.Context) error { return nil }},
		Consumer:     consumerFunc(func(context.Context) error { return boom }),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestRunHonoursCancellation(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumer: consumerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

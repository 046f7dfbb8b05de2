package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger func(context.Context) error

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumer     consumer
}

// Service checks its dependencies once and then runs the notification
// request consumer until the context ends.
type Service struct {
	logg         *logger.Logger
	dependencies map[string]pinger
	consumer     consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg:         params.Logger,
		dependencies: params.Dependencies,
		consumer:     params.Consumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, ping := range s.dependencies {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			}
			return err
		case <-ticker.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}

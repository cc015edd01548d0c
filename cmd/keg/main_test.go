package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/keg/internal/app"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newComponents(
	ctrl *gomock.Controller,
) (*mocks.MockManifestLoader, *mocks.MockSettingsLoader, *mocks.MockLogger, ComponentProvider) {
	loader := mocks.NewMockManifestLoader(ctrl)
	settings := mocks.NewMockSettingsLoader(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	application := app.New(loader, settings, nil, nil, logger)
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: logger}, func() {}, nil
	}
	return loader, settings, logger, provider
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, _, _, provider := newComponents(ctrl)

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ResolutionError verifies that resolution failures exit 1 and are logged.
func TestRun_ResolutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader, settings, logger, provider := newComponents(ctrl)

	settings.EXPECT().Load(gomock.Any()).Return(domain.Settings{Prefix: t.TempDir()}, nil)
	loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrNoMatchingPackage)
	})

	exitCode := run(context.Background(), []string{"plan", "jg", "--platform", "linux"}, io.Discard, provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_UsageError verifies that install without packages exits 1.
func TestRun_UsageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, _, logger, provider := newComponents(ctrl)
	logger.EXPECT().Error(domain.ErrNoPackagesSpecified)

	exitCode := run(context.Background(), []string{"install"}, io.Discard, provider)
	assert.Equal(t, 1, exitCode)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"manifest", &domain.ManifestError{Err: domain.ErrMissingName}, 1},
		{"resolution", &domain.ResolutionError{Kind: domain.ErrNoMatchingVersion}, 1},
		{"fetch", &domain.StageError{Stage: domain.StageFetch, Err: &domain.FetchError{StatusCode: 404}}, 2},
		{"verify", &domain.StageError{Stage: domain.StageVerify, Err: domain.ErrVerificationFailed}, 2},
		{"build", &domain.StageError{Stage: domain.StageBuild, Err: &domain.BuildError{ExitCode: 2}}, 3},
		{"place", &domain.StageError{Stage: domain.StagePlace, Err: domain.ErrPlaceFailed}, 3},
		{"test", &domain.StageError{Stage: domain.StageTest, Err: domain.ErrTestFailed}, 4},
		{"wrapped", errors.Join(errors.New("ctx"), &domain.StageError{Stage: domain.StageTest}), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

// TestRun_Signal verifies that the context is canceled on signal.
func TestRun_Signal(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, settings, logger, provider := newComponents(ctrl)

	blockCh := make(chan struct{})
	settings.EXPECT().Load(gomock.Any()).DoAndReturn(func(ctx context.Context) (domain.Settings, error) {
		select {
		case <-ctx.Done():
			return domain.Settings{}, ctx.Err()
		case <-blockCh:
			return domain.Settings{}, errors.New("unblocked without cancellation")
		}
	})
	// Allow logging of the error when context is canceled
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan int)

	go func() {
		errCh <- run(ctx, []string{"plan", "jg"}, io.Discard, provider)
	}()

	// Wait a bit to ensure run() reaches Load()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case ret := <-errCh:
		assert.NotEqual(t, 0, ret)
	case <-time.After(2 * time.Second):
		close(blockCh)
		t.Fatal("TestRun_Signal timed out waiting for run() to return")
	}
}

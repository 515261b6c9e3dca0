package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	runloginadapter "nightwatch/internal/modules/runlog/adapter/in"
	runlogoutadapter "nightwatch/internal/modules/runlog/adapter/out"
	runlogservice "nightwatch/internal/modules/runlog/service"
	runlogusecase "nightwatch/internal/modules/runlog/usecase"
	trackerinadapter "nightwatch/internal/modules/tracker/adapter/in"
	trackeroutadapter "nightwatch/internal/modules/tracker/adapter/out"
	"nightwatch/internal/modules/tracker/domain"
	trackerin "nightwatch/internal/modules/tracker/port/in"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	trackerservice "nightwatch/internal/modules/tracker/service"
	trackerusecase "nightwatch/internal/modules/tracker/usecase"
	visioninadapter "nightwatch/internal/modules/vision/adapter/in"
	visionoutadapter "nightwatch/internal/modules/vision/adapter/out"
	visionin "nightwatch/internal/modules/vision/port/in"
	visionservice "nightwatch/internal/modules/vision/service"
	visionusecase "nightwatch/internal/modules/vision/usecase"
	"nightwatch/internal/platform/clock"
	"nightwatch/internal/platform/config"
	"nightwatch/internal/platform/id"
	"nightwatch/internal/platform/logging"
	uiapp "nightwatch/internal/ui/app"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	// Quiet keeps logs off the terminal; the TUI owns the screen.
	Quiet bool
}

type App struct {
	Config config.Config
	Log    *logrus.Logger

	Tracker     trackerin.Usecase
	TrackerCLI  trackerinadapter.CLIHandler
	TrackerHTTP *trackerinadapter.HTTPHandler
	RunsCLI     runloginadapter.CLIHandler
	VisionCLI   visioninadapter.CLIHandler

	closers []func() error
}

func New(cfg config.Config, opts Options) (*App, error) {
	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.LogFilePath(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Quiet:      opts.Quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	app := &App{Config: cfg, Log: logger}

	runStore, err := runlogoutadapter.NewSQLiteRunStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new run store: %w", err)
	}
	app.closers = append(app.closers, runStore.Close)
	runsUC := runlogusecase.NewInteractor(runlogservice.NewRunService(
		id.UUID{},
		runStore,
		runlogoutadapter.NewNoteExporter(cfg.DataDir),
	))

	host := visionoutadapter.NewGRPCHost(logger.WithField("component", "vision"))
	app.closers = append(app.closers, func() error { host.Close(); return nil })
	visionUC := visionusecase.NewInteractor(visionservice.NewVisionService(
		visionoutadapter.NewFileManifestStore(cfg.PluginDir()),
		host,
	))

	gateway := trackerservice.NewGateway(
		newCapturer(cfg.Capture),
		newClassifier(cfg.Classifier, visionUC),
		trackerservice.GatewayTimeout,
		logger.WithField("component", "gateway"),
	)
	scheduler := trackerservice.NewScheduler(gateway, trackerservice.PollInterval, logger.WithField("component", "scheduler"))
	controller := trackerusecase.NewController(
		clock.SystemClock{},
		domain.DefaultDurations,
		scheduler,
		trackeroutadapter.NewRunlogRecorder(runsUC),
		logger.WithField("component", "controller"),
	)

	app.Tracker = controller
	app.TrackerCLI = trackerinadapter.NewCLIHandler(controller)
	app.TrackerHTTP = trackerinadapter.NewHTTPHandler(controller, logger.WithField("component", "http"))
	app.RunsCLI = runloginadapter.NewCLIHandler(runsUC)
	app.VisionCLI = visioninadapter.NewCLIHandler(visionUC)
	return app, nil
}

// Close releases plugin processes and the database, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newCapturer(cfg config.CaptureConfig) trackerout.ScreenCapturer {
	if cfg.File != "" {
		return trackeroutadapter.NewFileCapturer(cfg.File, cfg.MIME)
	}
	return trackeroutadapter.NewCommandCapturer(cfg.Command, cfg.MIME)
}

func newClassifier(cfg config.ClassifierConfig, vision visionin.Usecase) trackerout.PhaseClassifier {
	if cfg.Backend == config.BackendHTTP {
		return trackeroutadapter.NewHTTPClassifier(cfg.Endpoint, cfg.APIKey, trackerservice.GatewayTimeout)
	}
	return trackeroutadapter.NewPluginClassifier(vision, cfg.Plugin)
}

// RunTUI drives the session controller behind the terminal overlay. With
// serve set, the HTTP overlay runs alongside it.
func RunTUI(ctx context.Context, app *App, serve bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- app.Tracker.Run(ctx) }()
	waits := 1
	if serve {
		go func() { done <- listen(ctx, app) }()
		waits++
	}

	model := uiapp.NewModel(ctx, app.Tracker, app.RunsCLI)
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	cancel()
	for i := 0; i < waits; i++ {
		if runErr := <-done; runErr != nil && err == nil {
			err = runErr
		}
	}
	return err
}

// Serve runs the controller headless behind the HTTP overlay until ctx ends.
func Serve(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Tracker.Run(ctx) }()
	err := listen(ctx, app)
	cancel()
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	return err
}

func listen(ctx context.Context, app *App) error {
	srv := &http.Server{
		Addr:              app.Config.Overlay.Listen,
		Handler:           app.TrackerHTTP.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		app.Log.WithField("addr", srv.Addr).Info("overlay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("overlay server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("overlay shutdown: %w", err)
	}
	return nil
}

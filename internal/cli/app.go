package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"struk/internal/assist"
	"struk/internal/backend"
	"struk/internal/config"
	applog "struk/internal/log"
	"struk/internal/prefs"
	"struk/internal/services"
)

// ErrScannerDisabled is returned by App.Scanner when no Gemini key is set.
var ErrScannerDisabled = errors.New("receipt scanning needs GEMINI_API_KEY")

// App is the fully wired service graph a command runs against.
type App struct {
	Config  *config.Config
	Prefs   *prefs.Prefs
	Backend *backend.Result

	Ledger     *services.Ledger
	Categories *services.Categories
	Profile    *services.Profile
	Pusher     *services.Pusher
	Advisor    *assist.Advisor

	scanner *assist.ReceiptScanner
	logger  *applog.Logger
}

// Options tweak NewApp. Factory defaults to backend.NewFactory and Model
// to Gemini when a key is configured.
type Options struct {
	Factory backend.Factory
	Model   assist.Model
	OnPush  func(services.PushResult)
}

// NewApp opens the store, builds the remote, seeds defaults and loads the
// ledger.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := applog.Default().WithComponent(applog.ComponentApp)

	p, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := opts.Factory
	if factory == nil {
		factory = backend.NewFactory(logger)
	}
	res, err := factory.Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Prefs:      p,
		Backend:    res,
		Categories: services.NewCategories(res.Store),
		Profile:    services.NewProfile(res.Store),
		logger:     logger,
	}
	if res.Remote != nil {
		app.Pusher = services.NewPusher(res.Remote, services.PusherConfig{
			Workers: cfg.PushWorkers,
			Timeout: cfg.PushTimeout,
		}, opts.OnPush)
	}
	app.Ledger = services.NewLedger(res.Store, res.Remote, app.Pusher)

	model := opts.Model
	if model == nil && cfg.GeminiAPIKey != "" {
		g, err := assist.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WarnContext(ctx, "Gemini unavailable", applog.FieldError, err)
		} else {
			model = g
		}
	}
	if model != nil {
		app.scanner = assist.NewReceiptScanner(model, cfg.ScanMaxBytes)
	}
	app.Advisor = assist.NewAdvisor(model)

	if _, _, err := app.Profile.Bootstrap(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	if err := app.Ledger.Load(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

// Scanner returns the receipt scanner, or ErrScannerDisabled.
func (a *App) Scanner() (*assist.ReceiptScanner, error) {
	if a.scanner == nil {
		return nil, ErrScannerDisabled
	}
	return a.scanner, nil
}

// LinkedSheet returns the id of the linked spreadsheet.
func (a *App) LinkedSheet(ctx context.Context) (string, error) {
	prof, err := a.Profile.Get(ctx)
	if err != nil {
		return "", err
	}
	if prof.GoogleSheetID == "" {
		return "", fmt.Errorf("no spreadsheet linked, run 'struk sheet create' or 'struk sheet link <id>'")
	}
	return prof.GoogleSheetID, nil
}

// Close waits up to the push timeout for background pushes, then closes
// the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Pusher != nil {
		wait, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.PushTimeout+time.Second)
		if err := a.Pusher.Close(wait); err != nil {
			errs = append(errs, fmt.Errorf("waiting for pushes: %w", err))
		}
		cancel()
	}
	if err := a.Backend.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

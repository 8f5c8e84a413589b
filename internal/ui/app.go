package ui

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zsprackett/colorboard/internal/config"
	"github.com/zsprackett/colorboard/internal/dashboard"
	"github.com/zsprackett/colorboard/internal/notify"
	"github.com/zsprackett/colorboard/internal/ui/dialogs"
)

type App struct {
	tapp   *tview.Application
	pages  *tview.Pages
	home   *Home
	ctrl   *dashboard.Controller
	toasts *notify.Center
	cfg    config.Config
	logger *slog.Logger
	ctx    context.Context
}

func NewApp(api dashboard.API, cfg config.Config, logger *slog.Logger) *App {
	a := &App{
		cfg:    cfg,
		logger: logger,
		ctx:    context.Background(),
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()
	a.home = NewHome(a.tapp)

	fwd := notify.NewForwarder(notify.Config{
		Enabled: cfg.Notifications.Enabled,
		Webhook: cfg.Notifications.Webhook,
		NtfyURL: cfg.Notifications.NtfyURL,
	}, logger)
	a.toasts = notify.New(cfg.ToastLifetime(), fwd, logger)
	a.toasts.OnChange(a.home.ShowToasts)

	a.ctrl = dashboard.New(api, a.home, a.toasts, dashboard.Options{
		RefreshInterval: cfg.Refresh(),
		ClockFormat:     cfg.ClockFormat,
	}, logger)

	a.pages.AddPage("home", a.home, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(true)
	a.tapp.SetInputCapture(a.handleKey)

	a.home.SetCallbacks(func(color string, publish bool) {
		_ = a.ctrl.SetColor(a.ctx, color, publish)
	})

	return a
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	a.home.Attach()

	go a.ctrl.Start(ctx)
	go func() {
		<-ctx.Done()
		a.tapp.Stop()
	}()

	err := a.tapp.Run()

	a.home.Detach()
	a.ctrl.Close()
	a.toasts.Close()
	return err
}

// handleKey implements the global shortcuts. Anything that ends up calling
// back into the View runs on its own goroutine.
func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlR:
		go a.ctrl.ManualRefresh()
		return nil
	case tcell.KeyCtrlT:
		go func() {
			if a.ctrl.ToggleAutoRefresh() {
				a.toasts.Info("Auto-refresh on")
			} else {
				a.toasts.Info("Auto-refresh paused")
			}
		}()
		return nil
	case tcell.KeyCtrlD:
		go a.toasts.DismissAll()
		return nil
	case tcell.KeyCtrlW:
		if !a.dialogOpen() {
			a.home.CycleFocus()
		}
		return nil
	case tcell.KeyF1:
		if a.pages.HasPage("help") {
			a.closeDialog("help")
		} else {
			a.showHelp()
		}
		return nil
	}
	return event
}

func (a *App) dialogOpen() bool {
	name, _ := a.pages.GetFrontPage()
	return name != "home"
}

func (a *App) showDialog(name string, widget tview.Primitive, width, height int) {
	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(widget, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, modal, true, true)
	a.tapp.SetFocus(widget)
}

func (a *App) closeDialog(name string) {
	a.pages.RemovePage(name)
	a.tapp.SetFocus(a.home.Focused())
}

func (a *App) showHelp() {
	help := dialogs.HelpDialog(a.cfg.APIURL, func() {
		a.closeDialog("help")
	})
	a.showDialog("help", help, 60, 20)
}

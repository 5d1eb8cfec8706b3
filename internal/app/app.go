// Package app runs the two long-lived loops: the gateway event feed
// and the weekly recap scheduler.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/Josperdo/mjolnir/internal/app/cmdHandlers"
	"github.com/Josperdo/mjolnir/internal/service"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

// App coordinates the event loop and the recap scheduler.
type App struct {
	client  *discord.Client
	tracker *service.TrackerService
	recap   *service.RecapService
	cmds    *cmdHandlers.CmdHandler
	log     *slog.Logger
}

func New(
	client *discord.Client,
	tracker *service.TrackerService,
	recap *service.RecapService,
	cmds *cmdHandlers.CmdHandler,
	log *slog.Logger,
) *App {
	return &App{
		client:  client,
		tracker: tracker,
		recap:   recap,
		cmds:    cmds,
		log:     log,
	}
}

// Run blocks until the context is canceled or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleEvents(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduleRecaps(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

// handleEvents long-polls the gateway bridge and dispatches each event
// in arrival order. The cursor advances past every event we received,
// including ones whose handling failed.
func (a *App) handleEvents(ctx context.Context) {
	var after int64
	for {
		events, err := a.client.PollEvents(ctx, after)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Error("event poll failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		for _, ev := range events {
			after = ev.ID
			a.handleEvent(ctx, ev)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, ev discord.Event) {
	switch ev.Type {
	case discord.EventActivityStart:
		if err := a.tracker.HandleActivityStart(ctx, ev.UserID, ev.Activity); err != nil {
			a.log.Error("activity start failed", "user_id", ev.UserID, "activity", ev.Activity, "error", err)
		}
	case discord.EventActivityStop:
		if err := a.tracker.HandleActivityStop(ctx, ev.UserID, ev.Activity); err != nil {
			a.log.Error("activity stop failed", "user_id", ev.UserID, "activity", ev.Activity, "error", err)
		}
	case discord.EventCommand:
		a.cmds.HandleCommand(ctx, ev)
	default:
		a.log.Debug("ignoring event", "type", ev.Type)
	}
}

// scheduleRecaps fires RunDue twice an hour; the service decides
// whether the recap slot has actually arrived.
func (a *App) scheduleRecaps(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.recap.RunDue(ctx); err != nil {
				a.log.Error("weekly recap failed", "error", err)
			}
		}
	}
}

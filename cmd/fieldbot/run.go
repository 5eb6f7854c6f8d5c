package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kylejryan/field-report-bot/internal/config"
	"github.com/kylejryan/field-report-bot/internal/dispatch"
	"github.com/kylejryan/field-report-bot/internal/health"
	"github.com/kylejryan/field-report-bot/internal/logging"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/schema"
	"github.com/kylejryan/field-report-bot/internal/session"
	"github.com/kylejryan/field-report-bot/internal/telegram"
	"github.com/kylejryan/field-report-bot/internal/wizard"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func run(parent context.Context) error {
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(env.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s, err := schema.Load(env.SchemaPath)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := buildBackends(ctx, env, log)
	if err != nil {
		return err
	}
	defer b.close()

	bot, err := telegram.New(env.TelegramToken, env.PollTimeout, env.DownloadTimeout, log)
	if err != nil {
		return err
	}

	clock := func() time.Time { return time.Now().In(env.Location) }
	committer := &report.Committer{
		Objects:  b.objects,
		Records:  b.records,
		Notifier: b.notifier,
		Alerter:  b.alerter,
		Log:      log,
		Now:      clock,
	}
	store := session.NewStore()
	wiz := wizard.New(s, store, bot, committer, log)
	wiz.SetClock(clock)

	disp := dispatch.New(ctx, log, 0)
	defer disp.Close()

	hs := health.NewServer(env.HealthAddr, store, health.CounterFunc(disp.Active), s, log)

	log.Info("fieldbot starting",
		zap.String("record_store", env.RecordStore),
		zap.String("object_store", env.ObjectStore),
		zap.String("events", env.EventsBackend),
		zap.Int("fields", s.Len()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx, route(gctx, disp, wiz, bot, log))
	})
	g.Go(func() error {
		return hs.Run(gctx)
	})

	err = g.Wait()
	log.Info("fieldbot stopping", zap.Int("open_sessions", store.Len()))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

const textBusy = "⏳ Troppi messaggi in attesa, riprova tra qualche secondo."

type submitter interface {
	Submit(key string, job dispatch.Job) error
}

type texter interface {
	SendText(ctx context.Context, sessionID, text string) error
}

// route queues each message on its session's worker. A message dropped
// because the session is backlogged is answered so the operator can resend.
func route(ctx context.Context, disp submitter, wiz *wizard.Wizard, out texter, log *zap.Logger) func(wizard.Message) {
	return func(msg wizard.Message) {
		err := disp.Submit(msg.SessionID, func(ctx context.Context) {
			handle(ctx, wiz, msg, log)
		})
		if err == nil {
			return
		}
		log.Warn("message dropped", zap.String("session_id", msg.SessionID), zap.Error(err))
		if errors.Is(err, dispatch.ErrQueueFull) {
			if err := out.SendText(ctx, msg.SessionID, textBusy); err != nil {
				log.Warn("busy reply not delivered", zap.String("session_id", msg.SessionID), zap.Error(err))
			}
		}
	}
}

func handle(ctx context.Context, wiz *wizard.Wizard, msg wizard.Message, log *zap.Logger) {
	out, err := wiz.Handle(ctx, msg)
	if err != nil {
		log.Warn("reply not delivered",
			zap.String("session_id", msg.SessionID),
			zap.Int("outcome", int(out)),
			zap.Error(err),
		)
	}
}

// Command server wires the coordination plane's dependency graph and starts
// the HTTP+WebSocket listener, generalized from dkeye-Voice's cmd/server
// main.go graceful-shutdown pattern (signal.NotifyContext, deferred
// http.Server.Shutdown) with dependency wiring generalized from
// foxseedlab-mojiokoshin's samber/do/v2 injector graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/config"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/email"
	"github.com/dkeye/confcore/internal/filestore"
	"github.com/dkeye/confcore/internal/httpapi"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/dkeye/confcore/internal/minutes"
	"github.com/dkeye/confcore/internal/queue"
	"github.com/dkeye/confcore/internal/recording"
	"github.com/dkeye/confcore/internal/signaling"
	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/dkeye/confcore/internal/user"
)

func decodeJob(job domain.Job, v any) error {
	return json.Unmarshal(job.Payload, v)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	injector := setupDI(cfg)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Error().Err(err).Msg("injector shutdown error")
		}
	}()

	q := do.MustInvoke[queue.Queue](injector)
	verifier := do.MustInvoke[*auth.Verifier](injector)
	userSvc := do.MustInvoke[*user.Service](injector)
	meetingSvc := do.MustInvoke[*meeting.Service](injector)
	reminderWorker := do.MustInvoke[*meeting.ReminderWorker](injector)
	minutesPipeline := do.MustInvoke[*minutes.Pipeline](injector)
	recordingSvc := do.MustInvoke[*recording.Service](injector)
	dispatcher := do.MustInvoke[*email.Dispatcher](injector)
	files := do.MustInvoke[*filestore.Store](injector)
	signalCtrl := do.MustInvoke[*signaling.Controller](injector)
	cacheStore := do.MustInvoke[cache.Store](injector)

	// Register queue consumers (spec §4.C: reminder, email, momGeneration).
	if err := q.Subscribe(domain.QueueReminder, queue.Concurrency(domain.QueueReminder), reminderWorker.HandleJob); err != nil {
		log.Error().Err(err).Msg("failed to subscribe reminder worker")
	}
	if err := q.Subscribe(domain.QueueEmail, queue.Concurrency(domain.QueueEmail), dispatcher.HandleJob); err != nil {
		log.Error().Err(err).Msg("failed to subscribe email dispatcher")
	}
	if err := q.Subscribe(domain.QueueMoMGen, queue.Concurrency(domain.QueueMoMGen), func(jctx context.Context, job domain.Job) error {
		var p domain.MoMGeneratePayload
		if err := decodeJob(job, &p); err != nil {
			return err
		}
		_, err := minutesPipeline.Generate(jctx, p.MeetingID, domain.UserID(p.RequestedBy))
		return err
	}); err != nil {
		log.Error().Err(err).Msg("failed to subscribe minutes generation worker")
	}

	router := httpapi.NewRouter(&httpapi.Deps{
		Config:     cfg,
		Verifier:   verifier,
		Users:      userSvc,
		Meetings:   meetingSvc,
		Minutes:    minutesPipeline,
		Recordings: recordingSvc,
		Cache:      cacheStore,
		Files:      files,
		Signal:     signalCtrl,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info().Str("addr", addr).Msg("confcore server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := q.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("queue shutdown error")
	}
	log.Info().Msg("server exited gracefully")
}

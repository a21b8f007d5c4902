package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/config"
	"github.com/dkeye/confcore/internal/core"
	"github.com/dkeye/confcore/internal/email"
	"github.com/dkeye/confcore/internal/filestore"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/dkeye/confcore/internal/minutes"
	"github.com/dkeye/confcore/internal/queue"
	"github.com/dkeye/confcore/internal/recording"
	"github.com/dkeye/confcore/internal/signaling"
	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/dkeye/confcore/internal/store/mongostore"
	"github.com/dkeye/confcore/internal/store/postgres"
	"github.com/dkeye/confcore/internal/user"
)

const dbInitTimeout = 15 * time.Second

// setupDI mirrors the teacher's per-package do.Provide graph (see
// foxseedlab-mojiokoshin's external/*/di.go), collapsed into one file since
// this binary has a single cmd/ entrypoint rather than the teacher's
// cmd/backend split. Each provider resolves its own upstream dependencies
// through the injector rather than a hand-threaded constructor chain.
func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (*postgres.UserRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewUserRepository(db), nil
	})

	do.Provide(injector, func(i do.Injector) (*mongostore.MeetingRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), dbInitTimeout)
		defer cancel()
		mdb, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := mongostore.NewMeetingRepository(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure meeting indexes: %w", err)
		}
		do.ProvideValue(i, mdb)
		return repo, nil
	})

	do.Provide(injector, func(i do.Injector) (*mongostore.MinutesRepository, error) {
		mdb := do.MustInvoke[*mongo.Database](i)
		repo := mongostore.NewMinutesRepository(mdb)
		ctx, cancel := context.WithTimeout(context.Background(), dbInitTimeout)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure minutes indexes: %w", err)
		}
		return repo, nil
	})

	do.Provide(injector, func(i do.Injector) (*mongostore.RecordingRepository, error) {
		mdb := do.MustInvoke[*mongo.Database](i)
		repo := mongostore.NewRecordingRepository(mdb)
		ctx, cancel := context.WithTimeout(context.Background(), dbInitTimeout)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure recording indexes: %w", err)
		}
		return repo, nil
	})

	do.Provide(injector, func(i do.Injector) (cache.Store, error) {
		return cache.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (queue.Queue, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var durable queue.Queue
		if nq, err := queue.Connect(cfg.NATSURL, log.Logger); err != nil {
			log.Warn().Err(err).Msg("nats unavailable at startup, running on in-memory queue only")
		} else {
			durable = nq
		}
		return queue.NewResilient(durable, log.Logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*queue.Enqueuer, error) {
		return queue.NewEnqueuer(do.MustInvoke[queue.Queue](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*queue.Scheduler, error) {
		return queue.NewScheduler(do.MustInvoke[queue.Queue](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*auth.TokenIssuer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), nil
	})

	do.Provide(injector, func(i do.Injector) (*auth.Verifier, error) {
		return auth.NewVerifier(do.MustInvoke[*auth.TokenIssuer](i), do.MustInvoke[*postgres.UserRepository](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*user.Service, error) {
		return user.NewService(do.MustInvoke[*postgres.UserRepository](i), do.MustInvoke[*auth.TokenIssuer](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*meeting.Service, error) {
		return meeting.NewService(
			do.MustInvoke[*mongostore.MeetingRepository](i),
			do.MustInvoke[*postgres.UserRepository](i),
			do.MustInvoke[*queue.Scheduler](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*meeting.ReminderWorker, error) {
		return meeting.NewReminderWorker(
			do.MustInvoke[*meeting.Service](i),
			do.MustInvoke[*postgres.UserRepository](i),
			do.MustInvoke[*queue.Enqueuer](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*minutes.GeminiClient, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return minutes.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	})

	do.Provide(injector, func(i do.Injector) (*minutes.Pipeline, error) {
		return minutes.NewPipeline(
			do.MustInvoke[*mongostore.MinutesRepository](i),
			do.MustInvoke[*meeting.Service](i),
			do.MustInvoke[*postgres.UserRepository](i),
			do.MustInvoke[*minutes.GeminiClient](i),
			do.MustInvoke[*queue.Enqueuer](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*recording.Service, error) {
		return recording.NewService(do.MustInvoke[*mongostore.RecordingRepository](i), do.MustInvoke[*meeting.Service](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*email.Sender, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return email.NewSender(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom), nil
	})

	do.Provide(injector, func(i do.Injector) (*email.Dispatcher, error) {
		return email.NewDispatcher(do.MustInvoke[*email.Sender](i), do.MustInvoke[*mongostore.MinutesRepository](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*filestore.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return filestore.New(cfg.UploadDir, "/uploads")
	})

	do.Provide(injector, func(i do.Injector) (*core.RoomManager, error) {
		return core.NewRoomManager(), nil
	})

	do.Provide(injector, func(i do.Injector) (*core.Registry, error) {
		return core.NewRegistry(), nil
	})

	do.Provide(injector, func(i do.Injector) (*signaling.Controller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return signaling.NewController(
			do.MustInvoke[*core.RoomManager](i),
			do.MustInvoke[*core.Registry](i),
			do.MustInvoke[*auth.Verifier](i),
			do.MustInvoke[*meeting.Service](i),
			do.MustInvoke[cache.Store](i),
			log.Logger,
			cfg.ReadLimit,
			cfg.PingPeriod,
		), nil
	})

	return injector
}

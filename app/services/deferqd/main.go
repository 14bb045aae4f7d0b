package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/app/services/deferqd/handlers"
	"github.com/deferq/deferq/app/services/deferqd/handlers/checks"
	"github.com/deferq/deferq/business/database/postgres"
	"github.com/deferq/deferq/business/database/sqlite"
	"github.com/deferq/deferq/business/domain/result"
	resultPostgresRepo "github.com/deferq/deferq/business/domain/result/store/postgres"
	resultSqliteRepo "github.com/deferq/deferq/business/domain/result/store/sqlite"
	"github.com/deferq/deferq/business/domain/scheduler"
	"github.com/deferq/deferq/business/domain/task"
	taskPostgresRepo "github.com/deferq/deferq/business/domain/task/store/postgres"
	taskSqliteRepo "github.com/deferq/deferq/business/domain/task/store/sqlite"
	"github.com/deferq/deferq/business/engine"
	"github.com/deferq/deferq/business/engine/lease"
	"github.com/deferq/deferq/business/registry"
	"github.com/deferq/deferq/foundation/logger"
	"github.com/redis/go-redis/v9"
)

// will be changed from build tags
var build = "0.0.1"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "err: %s", err)
		os.Exit(1)
	}
}

func run() error {
	//==========================================================================
	//setup configurations
	configs := struct {
		API struct {
			Host            string        `conf:"default:0.0.0.0:8000"`
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			Environment     string        `conf:"default:development"`
		}

		DB struct {
			Engine string `conf:"default:sqlite"`

			Dir  string `conf:"default:/var/lib/deferq"`
			File string `conf:"default:deferq.db"`

			User            string        `conf:"default:deferq"`
			Password        string        `conf:"default:password,mask"`
			Host            string        `conf:"default:localhost:5432"`
			Name            string        `conf:"default:postgres"`
			MaxIdleConns    int           `conf:"default:10"`
			MaxOpenConns    int           `conf:"default:10"`
			MaxIdleConnTime time.Duration `conf:"default:5m"`
			MaxConnLifeTime time.Duration `conf:"default:10m"`
			DisableTLS      bool          `conf:"default:true"`
		}

		Engine struct {
			Active          bool          `conf:"default:true"`
			PollInterval    time.Duration `conf:"default:1s"`
			JanitorInterval time.Duration `conf:"default:1m"`
			MaxRunning      int           `conf:"default:4"`
			ExecTimeout     time.Duration `conf:"default:1m"`
			ResultTTL       time.Duration `conf:"default:5m"`
			ShutdownTimeout time.Duration `conf:"default:1m"`
		}

		Redis struct {
			Enabled  bool          `conf:"default:false"`
			Host     string        `conf:"default:localhost:6379"`
			Password string        `conf:"default:"`
			DBIdx    int           `conf:"default:0"`
			Timeout  time.Duration `conf:"default:5s"`
			LeaseKey string        `conf:"default:deferq:engine:lease"`
			LeaseTTL time.Duration `conf:"default:10s"`
		}
	}{}

	prefix := "DEFERQ"
	if help, err := conf.Parse(prefix, &configs); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		//some error we need to handle
		return fmt.Errorf("parsing config: %w", err)
	}

	//==========================================================================
	//setup logger
	isProd := configs.API.Environment == "production"

	attrs := []slog.Attr{
		{Key: "build", Value: slog.StringValue(build)},
		{Key: "app", Value: slog.StringValue("deferq")},
	}

	logger := logger.New(slog.LevelInfo, isProd, attrs...)

	//==========================================================================
	//validator
	appValidator, err := errs.NewAppValidator()
	if err != nil {
		return fmt.Errorf("creating app validator: %w", err)
	}
	logger.Info("application validator", "status", "successfully initialized")

	//==========================================================================
	//database setup
	var taskService *task.Service
	var resultService *result.Service
	var statusChecker checks.StatusChecker

	switch configs.DB.Engine {
	case "sqlite":
		logger.Info("database setup", "status", "opening", "engine", "sqlite", "dir", configs.DB.Dir)
		client, err := sqlite.NewClient(sqlite.Config{
			Dir:  configs.DB.Dir,
			File: configs.DB.File,
		})
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		defer client.Close()

		logger.Info("database", "status", "running migrations", "path", client.Path())
		if err := client.Migrate(); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		taskService = task.NewService(taskSqliteRepo.NewRepository(client))
		resultService = result.NewService(resultSqliteRepo.NewRepository(client), configs.Engine.ResultTTL)
		statusChecker = client

	case "postgres":
		logger.Info("database setup", "status", "connecting", "engine", "postgres", "host", configs.DB.Host)
		client, err := postgres.NewClient(postgres.Config{
			User:        configs.DB.User,
			Password:    configs.DB.Password,
			Host:        configs.DB.Host,
			Name:        configs.DB.Name,
			DisableTLS:  configs.DB.DisableTLS,
			MaxIdleConn: configs.DB.MaxIdleConns,
			MaxOpenConn: configs.DB.MaxOpenConns,
			MaxIdleTime: configs.DB.MaxIdleConnTime,
			MaxLifeTime: configs.DB.MaxConnLifeTime,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if err := client.StatusCheck(ctx); err != nil {
			return fmt.Errorf("status check: %w", err)
		}

		logger.Info("database", "status", "running migrations", "host", configs.DB.Host)
		if err := client.Migrate(); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		taskService = task.NewService(taskPostgresRepo.NewRepository(client))
		resultService = result.NewService(resultPostgresRepo.NewRepository(client), configs.Engine.ResultTTL)
		statusChecker = client

	default:
		return fmt.Errorf("unknown database engine %q", configs.DB.Engine)
	}
	logger.Info("database", "status", "ready to use")

	//==========================================================================
	//registry
	reg := registry.New()
	if err := registerBuiltins(reg, logger); err != nil {
		return fmt.Errorf("registering builtins: %w", err)
	}

	//==========================================================================
	//scheduler client
	schedulerClient, err := scheduler.New(scheduler.Config{
		Active:    configs.Engine.Active,
		Tasks:     taskService,
		Results:   resultService,
		Registry:  reg,
		Retention: configs.Engine.ResultTTL,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler client: %w", err)
	}

	//==========================================================================
	//engine lease, only needed when more than one instance shares the store
	var engineLease engine.Lease

	if configs.Redis.Enabled {
		logger.Info("redis", "status", "initializing lease support")
		redisClient := redis.NewClient(&redis.Options{
			Addr:     configs.Redis.Host,
			Password: configs.Redis.Password,
			DB:       configs.Redis.DBIdx,
		})

		ctx, cancel := context.WithTimeout(context.Background(), configs.Redis.Timeout)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("redis", "status", "successfully connected")

		l, err := lease.New(redisClient, configs.Redis.LeaseKey, configs.Redis.LeaseTTL)
		if err != nil {
			return fmt.Errorf("creating lease: %w", err)
		}
		engineLease = l
	}

	//==========================================================================
	//engine
	if configs.Engine.Active {
		eng, err := engine.New(engine.Config{
			Logger:          logger,
			Tasks:           taskService,
			Results:         resultService,
			Registry:        reg,
			Lease:           engineLease,
			PollInterval:    configs.Engine.PollInterval,
			JanitorInterval: configs.Engine.JanitorInterval,
			MaxRunning:      configs.Engine.MaxRunning,
			ExecTimeout:     configs.Engine.ExecTimeout,
		})
		if err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}

		logger.Info("engine", "status", "started", "pollInterval", configs.Engine.PollInterval.String())
		eng.Start()

		defer func() {
			logger.Info("engine", "status", "shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), configs.Engine.ShutdownTimeout)
			defer cancel()

			if err := eng.Stop(ctx); err != nil {
				logger.Error("engine", "status", "failed to gracefully stop", "msg", err.Error())
			}
		}()
	} else {
		logger.Info("engine", "status", "inactive", "msg", "all calls degrade to synchronous invocations")
	}

	//==========================================================================
	//server
	serverErrors := make(chan error, 1)
	shutdownCh := make(chan os.Signal, 1)

	signal.Notify(shutdownCh, syscall.SIGTERM, syscall.SIGINT)

	app, err := handlers.RegisterRoutes(handlers.Config{
		Build:     build,
		Shutdown:  shutdownCh,
		Logger:    logger,
		Validator: appValidator,
		Scheduler: schedulerClient,
		Registry:  reg,
		DB:        statusChecker,
	})
	if err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	srv := http.Server{
		Addr:        configs.API.Host,
		Handler:     http.TimeoutHandler(app, configs.API.WriteTimeout, "timed out"),
		ReadTimeout: configs.API.ReadTimeout,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("server", "status", "started", "host", configs.API.Host, "environment", configs.API.Environment)
		serverErrors <- srv.ListenAndServe()
	}()

	//block
	select {
	case serverErr := <-serverErrors:
		return fmt.Errorf("server error: %w", serverErr)
	case signal := <-shutdownCh:
		//graceful shutdown
		logger.Info("shutdown", "status", "started", "signal", signal)

		ctx, cancel := context.WithTimeout(context.Background(), configs.API.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			//force shutdown
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("shutdown", "status", "completed")
	}
	return nil
}

// registerBuiltins binds the functions this binary ships with. Every process
// sharing the store must register the same keys before its engine polls.
func registerBuiltins(reg *registry.Registry, logger *slog.Logger) error {
	err := reg.Register("sys.heartbeat", func(ctx context.Context, args json.RawMessage) (any, error) {
		logger.Info("heartbeat", "at", time.Now().UTC().Format(time.RFC3339))
		return nil, nil
	})
	if err != nil {
		return err
	}

	err = reg.Register("sys.echo", func(ctx context.Context, args json.RawMessage) (any, error) {
		return args, nil
	})
	if err != nil {
		return err
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/config"
	"github.com/kailas-cloud/geminibot/internal/db"
	"github.com/kailas-cloud/geminibot/internal/db/dynamo"
	"github.com/kailas-cloud/geminibot/internal/db/memory"
	dbRedis "github.com/kailas-cloud/geminibot/internal/db/redis"
	"github.com/kailas-cloud/geminibot/internal/domain"
	logpkg "github.com/kailas-cloud/geminibot/internal/logger"
	"github.com/kailas-cloud/geminibot/internal/metrics"
	usagerepo "github.com/kailas-cloud/geminibot/internal/repository/usage"
	evadapter "github.com/kailas-cloud/geminibot/internal/transport/events"
	geminiGen "github.com/kailas-cloud/geminibot/internal/transport/gemini"
	slackTransport "github.com/kailas-cloud/geminibot/internal/transport/slack"
	mentionuc "github.com/kailas-cloud/geminibot/internal/usecase/mention"
	"github.com/kailas-cloud/geminibot/internal/usecase/quota"
	"github.com/kailas-cloud/geminibot/internal/version"
)

// bot holds the dependencies shared by every run mode.
type bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      db.Store
	usage      *usagerepo.Store
	loc        *time.Location
	slack      *slackTransport.Client
	dispatcher *slackTransport.Dispatcher
}

// bootstrap loads configuration and wires the mention pipeline for mode.
func bootstrap(ctx context.Context, cli *CLI, mode string) (*bot, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	logger, err := logpkg.NewLogger(cli.Env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting geminibot",
		zap.String("mode", mode),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", cli.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("model", cfg.Gemini.Model),
		zap.Int64("daily_limit", cfg.Quota.DailyLimit),
	)

	if missing := cfg.MissingCredentials(mode); len(missing) > 0 {
		if mode == config.ModeSocket {
			logger.Fatal("Missing required credentials", zap.Strings("missing", missing))
		}
		logger.Warn("Missing credentials, replies will fail", zap.Strings("missing", missing))
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create quota store: %w", err)
	}
	// The gate fails open, so an unreachable store is not fatal.
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Quota store not ready, quota checks will fail open", zap.Error(err))
	} else {
		logger.Info("Connected to quota store")
	}

	metrics.RegisterBotMetrics()

	usage := usagerepo.New(store, cfg.Storage.KeyPrefix)
	gate := quota.NewGate(usage, cfg.Quota.DailyLimit, logger).WithLocation(loc)

	generator, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	slackOpts := []slack.Option{slack.OptionLog(zap.NewStdLog(logger.Named("slack")))}
	if cfg.Slack.AppToken != "" {
		slackOpts = append(slackOpts, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	}
	client := slackTransport.NewClient(cfg.Slack.BotToken, slackOpts...)

	handler := mentionuc.NewHandler(gate, generator, mentionuc.Messages{
		EmptyPrompt: cfg.Messages.EmptyPrompt,
		Placeholder: cfg.Messages.Placeholder,
		OverLimit:   cfg.Messages.OverLimit,
		ErrorPrefix: cfg.Messages.ErrorPrefix,
	}, logger).WithMarkdownConversion(cfg.Messages.ConvertMarkdownEnabled())

	return &bot{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		usage:      usage,
		loc:        loc,
		slack:      client,
		dispatcher: slackTransport.NewDispatcher(handler, client, logger),
	}, nil
}

// eventsAdapter builds the request/response adapter used by the lambda and serve modes.
func (b *bot) eventsAdapter() *evadapter.Adapter {
	opts := []evadapter.Option{evadapter.WithIgnoreRetries(b.cfg.Slack.IgnoreRetries)}
	if b.cfg.Slack.SigningSecret != "" {
		opts = append(opts, evadapter.WithVerifier(slackTransport.NewVerifier(b.cfg.Slack.SigningSecret)))
	} else {
		b.logger.Warn("slack.signing_secret is empty, request signatures are not verified")
	}
	return evadapter.NewAdapter(b.dispatcher, b.logger, opts...)
}

func (b *bot) Close() {
	b.store.Close()
	_ = b.logger.Sync()
}

func loadConfig(cli *CLI) (config.Config, error) {
	if cli.Config != "" {
		return config.LoadFile(cli.Config)
	}
	return config.Load(cli.Env)
}

func buildStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverDynamoDB:
		s, err := dynamo.NewStore(ctx, dynamo.Config{
			Table:        cfg.Database.Table,
			Region:       cfg.Database.Region,
			Endpoint:     cfg.Database.Endpoint,
			TTLAttribute: cfg.Database.TTLAttribute,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return memory.NewStore(), nil
	}
}

func buildGenerator(ctx context.Context, cfg config.Config, logger *zap.Logger) (mentionuc.Generator, error) {
	if cfg.Gemini.APIKey == "" {
		return unconfiguredGenerator{}, nil
	}
	g, err := geminiGen.NewGenerator(ctx, &geminiGen.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: time.Duration(cfg.Gemini.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	return g, nil
}

// unconfiguredGenerator answers every prompt with an error so the user sees why.
type unconfiguredGenerator struct{}

func (unconfiguredGenerator) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("gemini.api_key is not configured: %w", domain.ErrGenerationFailed)
}

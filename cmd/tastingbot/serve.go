package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tasting_bot/internal/bot"
	"tasting_bot/internal/config"
	"tasting_bot/internal/conversation"
	"tasting_bot/internal/core"
	"tasting_bot/internal/logger"
	"tasting_bot/internal/metrics"
	"tasting_bot/internal/nodes"
	"tasting_bot/internal/storage"
	"tasting_bot/internal/tastings"
	"tasting_bot/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.LogConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	vocab, err := config.LoadVocabulary(cfg.FlowConfig.VocabularyFile)
	if err != nil {
		return err
	}

	store, err := tastings.OpenURL(ctx, cfg.DatabaseConfig.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)

	var (
		sessions   core.SessionStore
		contexts   storage.ContextStore
		transcript conversation.Transcript
	)
	switch cfg.SessionConfig.Backend {
	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.SessionConfig.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions = storage.NewRedisSessionStore(client, cfg.SessionConfig.TTL)
		contexts = storage.NewRedisContextStore(client, cfg.SessionConfig.ContextTTL)
		transcript = conversation.NewRedisTranscript(client, cfg.SessionConfig.MaxTurns, cfg.SessionConfig.TTL)
	default:
		mem := storage.NewMemorySessionStore(cfg.SessionConfig.TTL)
		m.TrackSessions(reg, mem.Len)
		g.Go(func() error {
			mem.RunSweeper(ctx, cfg.SessionConfig.SweepInterval)
			return nil
		})
		sessions = mem
		contexts = storage.NewMemoryContextStore(cfg.SessionConfig.ContextEntries, cfg.SessionConfig.ContextTTL)
		transcript = conversation.NewMemoryTranscript(cfg.SessionConfig.MaxTurns, cfg.SessionConfig.TTL)
	}

	table, err := nodes.BuildTable(vocab)
	if err != nil {
		return err
	}
	opts := append(nodes.Finishers(store, store), core.WithSeed(bot.Seed(store)), core.WithObserver(m))
	controller, err := core.NewController(table, sessions, opts...)
	if err != nil {
		return err
	}

	hub := ws.NewHub()
	dispatcher, err := bot.New(bot.Deps{
		Flows:      controller,
		Repo:       store,
		Contexts:   contexts,
		Transcript: transcript,
		Transport:  hub,
		Observer:   m,
	}, bot.Options{
		Workers:   cfg.FlowConfig.Workers,
		QueueSize: cfg.FlowConfig.QueueSize,
		PageSize:  cfg.FlowConfig.PageSize,
	})
	if err != nil {
		return err
	}

	gin.SetMode(cfg.ServerConfig.GinMode)
	server := ws.NewServer(cfg.ServerConfig.Addr, hub, dispatcher, reg)

	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	logger.Info().
		Str("addr", cfg.ServerConfig.Addr).
		Str("sessions", cfg.SessionConfig.Backend).
		Str("database", string(store.Dialect())).
		Msg("tastingbot started")

	return g.Wait()
}

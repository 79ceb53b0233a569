package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/config"
	"github.com/RichardoC/padchat/internal/db"
	"github.com/RichardoC/padchat/internal/llm"
)

// app is everything a command needs once the config is loaded.
type app struct {
	database *db.Database
	store    *chat.Store
}

func openDatabase(cfg *config.Config, logger *zap.Logger) (*db.Database, error) {
	var opts []db.Option
	if cfg.Storage.Namespace != "" {
		opts = append(opts, db.WithNamespace(cfg.Storage.Namespace))
	}
	database, err := db.New(cfg.Storage.Driver, cfg.Storage.Path, opts...)
	if err != nil {
		logger.Error("Failed to initialize database",
			zap.Error(err),
			zap.String("driver", cfg.Storage.Driver),
			zap.String("dbPath", cfg.Storage.Path))
		return nil, err
	}
	return database, nil
}

func newQuerier(cfg *config.Config, logger *zap.Logger) (llm.Querier, error) {
	switch cfg.Remote.Provider {
	case config.ProviderOpenAI:
		client, err := llm.NewLangchainClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Model, cfg.Remote.DeepModel, cfg.Remote.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		return client, nil
	default:
		return llm.NewClient(cfg.Remote.Endpoint, cfg.Remote.Model, cfg.Remote.Timeout, logger), nil
	}
}

// newApp opens storage, builds the querier and loads the store. opts are
// applied after the ones derived from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...chat.Option) (*app, error) {
	database, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	querier, err := newQuerier(cfg, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	gateway := db.NewGateway(database, logger)
	storeOpts := []chat.Option{
		chat.WithLogger(logger),
		chat.WithAuthToken(cfg.Remote.Token),
		chat.WithDefaultMode(cfg.DefaultMode()),
		chat.WithRestoreSelection(cfg.Chat.RestoreSelection),
		chat.WithStateListener(func(st chat.State) {
			logger.Debug("Send state changed", zap.String("state", string(st)))
		}),
	}
	store := chat.New(querier, gateway, append(storeOpts, opts...)...)
	if err := store.Load(ctx); err != nil {
		store.Close()
		database.Close()
		return nil, fmt.Errorf("failed to load chat state: %w", err)
	}

	return &app{database: database, store: store}, nil
}

// Close stops the store, which writes outstanding changes, then closes the database.
func (a *app) Close() error {
	a.store.Close()
	return a.database.Close()
}

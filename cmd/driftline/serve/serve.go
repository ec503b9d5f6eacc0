// Package servecmder provides the serve command that runs the HTTP server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/driftline/driftline/api"
	"github.com/driftline/driftline/cmd/driftline/sqlitepath"
	"github.com/driftline/driftline/pkg/cluster"
	"github.com/driftline/driftline/pkg/config"
	"github.com/driftline/driftline/pkg/embeddings"
	embeddingutils "github.com/driftline/driftline/pkg/embeddings/utils"
	"github.com/driftline/driftline/pkg/eventstream"
	kafkastream "github.com/driftline/driftline/pkg/eventstream/kafka"
	"github.com/driftline/driftline/pkg/eventstream/nop"
	"github.com/driftline/driftline/pkg/ingest"
	"github.com/driftline/driftline/pkg/logger"
	"github.com/driftline/driftline/pkg/plugin"
	"github.com/driftline/driftline/pkg/session"
	"github.com/driftline/driftline/pkg/summarize"
	"github.com/driftline/driftline/pkg/timeline"
	"github.com/driftline/driftline/pkg/timeline/mastodon"
	"github.com/driftline/driftline/plugins/itemdebug"
	"github.com/driftline/driftline/plugins/topiccluster"
)

type ServeCommander struct {
	listen         string
	sqlitePath     string
	mastodonURL    string
	mastodonToken  string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	summarizeProv  string
	summarizeTgt   string
	summarizeModel string
	eventsProvider string
	workers        uint
	debug          bool
	logger         *zap.Logger
}

const serveLongDesc string = `Run the driftline HTTP server.

The server exposes the timeline, algorithm training, and session settings
under /api, pulling new items from the configured Mastodon instance on
demand via POST /api/timeline/sync.`

const serveShortDesc string = "Run the driftline HTTP server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagSQLite,
	config.FlagMastodonURL,
	config.FlagMastodonToken,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagSummarizeProv,
	config.FlagSummarizeTgt,
	config.FlagSummarizeModel,
	config.FlagEventsProvider,
	config.FlagIngestWorkers,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			return cmder.run(config.ConfigFromViper(v))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagMastodonURL, &cmder.mastodonURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagMastodonToken, &cmder.mastodonToken)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizeProv, &cmder.summarizeProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizeTgt, &cmder.summarizeTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizeModel, &cmder.summarizeModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddUintFlag(cmd, config.Flags, config.FlagIngestWorkers, &cmder.workers)

	return cmd
}

func (c *ServeCommander) run(cfg *config.Config) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	dbPath, err := sqlitepath.Resolve(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	c.logger.Info("using SQLite storage", zap.String("path", dbPath))

	items, err := timeline.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("creating item store: %w", err)
	}
	defer items.Close()

	sessions, err := session.NewSQLiteStore(dbPath, c.logger)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer sessions.Close()

	assignments, err := cluster.NewSQLiteAssignmentStore(dbPath)
	if err != nil {
		return fmt.Errorf("creating assignment store: %w", err)
	}

	summarizer, err := summarize.NewFactory(summarize.CallerConfig{
		Provider: cfg.Summarize.Provider,
		Model:    cfg.Summarize.Model,
		BaseURL:  cfg.Summarize.Target,
	})
	if err != nil {
		return fmt.Errorf("creating summarizer: %w", err)
	}

	registry := plugin.New(c.logger,
		topiccluster.NewBundle(cluster.Deps{
			Assignments: assignments,
			Summarize:   summarizer,
			Logger:      c.logger,
		}),
		itemdebug.NewBundle(),
	)

	publisher, err := c.createPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	ingester, embedder, err := c.createIngester(cfg, items)
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	}

	ctx := context.Background()
	teardown := registry.RunHooks(ctx)
	defer teardown()

	deps := api.Deps{
		Sessions:  sessions,
		Items:     items,
		Registry:  registry,
		Publisher: publisher,
	}
	if ingester != nil {
		deps.Ingest = ingester
	}

	server := api.NewServer(api.Config{ListenAddr: cfg.Server.Listen}, deps, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) createPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case "kafka":
		publisher, err := kafkastream.NewPublisher(kafkastream.Config{
			Brokers: cfg.EventStream.Brokers,
			Topic:   cfg.EventStream.Topic,
			Logger:  c.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing model events to kafka",
			zap.Strings("brokers", cfg.EventStream.Brokers),
			zap.String("topic", cfg.EventStream.Topic),
		)
		return publisher, nil
	default:
		return nop.NewPublisher(), nil
	}
}

// createIngester wires the Mastodon source when one is configured. Without
// a Mastodon URL the server still runs, it just cannot sync.
func (c *ServeCommander) createIngester(cfg *config.Config, items timeline.Store) (*ingest.Ingester, embeddings.Embedder, error) {
	if cfg.Mastodon.URL == "" {
		c.logger.Warn("no mastodon instance configured, sync disabled")
		return nil, nil, nil
	}

	source, err := mastodon.NewClient(mastodon.Config{
		BaseURL:     cfg.Mastodon.URL,
		AccessToken: cfg.Mastodon.AccessToken,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating mastodon client: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	ingester, err := ingest.New(&ingest.Config{
		Source:     source,
		Store:      items,
		Embedder:   embedder,
		NumWorkers: cfg.Ingest.Workers,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating ingester: %w", err)
	}

	return ingester, embedder, nil
}

// Package synccmder provides the sync command for one-off timeline pulls.
package synccmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftline/driftline/cmd/driftline/sqlitepath"
	"github.com/driftline/driftline/pkg/cliui"
	"github.com/driftline/driftline/pkg/config"
	embeddingutils "github.com/driftline/driftline/pkg/embeddings/utils"
	"github.com/driftline/driftline/pkg/ingest"
	"github.com/driftline/driftline/pkg/logger"
	"github.com/driftline/driftline/pkg/timeline"
	"github.com/driftline/driftline/pkg/timeline/mastodon"
)

type SyncCommander struct {
	sqlitePath     string
	mastodonURL    string
	mastodonToken  string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	workers        uint
	debug          bool
}

const syncLongDesc string = `Pull new timeline items once, embed them, and store them.

Fetches everything newer than the most recent stored item from the
configured Mastodon instance. Items whose embedding fails are stored
without one and retried on the next sync.`

const syncShortDesc string = "Pull and embed new timeline items once"

var syncFlags = []string{
	config.FlagSQLite,
	config.FlagMastodonURL,
	config.FlagMastodonToken,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagIngestWorkers,
}

func NewSyncCmd() *cobra.Command {
	cmder := &SyncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
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
			config.BindRegisteredFlags(v, cmd, config.Flags, syncFlags)

			return cmder.run(config.ConfigFromViper(v))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagMastodonURL, &cmder.mastodonURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagMastodonToken, &cmder.mastodonToken)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagIngestWorkers, &cmder.workers)

	return cmd
}

func (c *SyncCommander) run(cfg *config.Config) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	if cfg.Mastodon.URL == "" {
		return fmt.Errorf("no mastodon instance configured; set mastodon.url or pass --mastodon-url")
	}

	dbPath, err := sqlitepath.Resolve(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}

	items, err := timeline.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("creating item store: %w", err)
	}
	defer items.Close()

	source, err := mastodon.NewClient(mastodon.Config{
		BaseURL:     cfg.Mastodon.URL,
		AccessToken: cfg.Mastodon.AccessToken,
	})
	if err != nil {
		return fmt.Errorf("creating mastodon client: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	ingester, err := ingest.New(&ingest.Config{
		Source:     source,
		Store:      items,
		Embedder:   embedder,
		NumWorkers: cfg.Ingest.Workers,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating ingester: %w", err)
	}

	var stats *ingest.Stats
	err = cliui.Step(os.Stdout, fmt.Sprintf("Syncing from %s", cfg.Mastodon.URL), func() error {
		var syncErr error
		stats, syncErr = ingester.Sync(context.Background())
		return syncErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("  %s %d fetched, %d saved, %d skipped, %d without embedding\n",
		cliui.KeyStyle.Render("Done:"),
		stats.Fetched, stats.Saved, stats.Skipped, stats.EmbedFailures,
	)
	return nil
}

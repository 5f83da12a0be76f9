package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/floorbot/pkg/adapter"
	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/lead"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/policy"
	"github.com/m-mizutani/floorbot/pkg/repository"
	"github.com/m-mizutani/floorbot/pkg/retrieval"
	"github.com/m-mizutani/floorbot/pkg/usecase/chat"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	indexMemory    = "memory"
	indexFirestore = "firestore"

	storeMemory    = "memory"
	storeSQLite    = "sqlite"
	storeRedis     = "redis"
	storeFirestore = "firestore"
)

// config holds configuration values
type config struct {
	logLevel    string
	catalogPath string

	// Google Cloud
	project  string
	database string

	// LLM
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string
	temperature     float64
	maxTokens       int64

	// Index
	indexKind    string
	snapshotPath string

	// Session store
	storeKind     string
	sqlitePath    string
	redisAddr     string
	redisPassword string
	redisDB       int64
	sessionTTL    time.Duration

	// Retrieval and chat
	documentK       int64
	imageK          int64
	similarityFloor float64
	historyWindow   int64
	signalHistory   int64
	maxImages       int64
	policyDir       string

	// Export
	bucket          string
	bucketPrefix    string
	bigqueryDataset string
	bigqueryTable   string

	closers []func() error
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("FLOORBOT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "catalog",
			Usage:       "Path to a catalog YAML file replacing the built-in catalog",
			Sources:     cli.EnvVars("FLOORBOT_CATALOG"),
			Destination: &cfg.catalogPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (defaults to --project)",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model used for answers",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("FLOORBOT_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model used for embeddings",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("FLOORBOT_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.FloatFlag{
			Name:        "temperature",
			Usage:       "Sampling temperature",
			Value:       0.7,
			Sources:     cli.EnvVars("FLOORBOT_TEMPERATURE"),
			Destination: &cfg.temperature,
		},
		&cli.IntFlag{
			Name:        "max-tokens",
			Usage:       "Maximum output tokens per answer",
			Value:       1000,
			Sources:     cli.EnvVars("FLOORBOT_MAX_TOKENS"),
			Destination: &cfg.maxTokens,
		},
	}
}

// indexFlags selects where embedded fragments live
func indexFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Similarity index backend (memory, firestore)",
			Value:       indexMemory,
			Sources:     cli.EnvVars("FLOORBOT_INDEX"),
			Destination: &cfg.indexKind,
		},
		&cli.StringFlag{
			Name:        "snapshot",
			Usage:       "Fragment snapshot file for the memory index",
			Value:       "data/fragments.json",
			Sources:     cli.EnvVars("FLOORBOT_SNAPSHOT"),
			Destination: &cfg.snapshotPath,
		},
	}
}

func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "session-store",
			Usage:       "Session store backend (memory, sqlite, redis, firestore)",
			Value:       storeMemory,
			Sources:     cli.EnvVars("FLOORBOT_SESSION_STORE"),
			Destination: &cfg.storeKind,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file for the sqlite session store",
			Value:       "data/sessions.db",
			Sources:     cli.EnvVars("FLOORBOT_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address for the redis session store",
			Value:       "localhost:6379",
			Sources:     cli.EnvVars("FLOORBOT_REDIS_ADDR"),
			Destination: &cfg.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Sources:     cli.EnvVars("FLOORBOT_REDIS_PASSWORD"),
			Destination: &cfg.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Sources:     cli.EnvVars("FLOORBOT_REDIS_DB"),
			Destination: &cfg.redisDB,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Idle time after which a session expires",
			Value:       model.SessionTTL,
			Sources:     cli.EnvVars("FLOORBOT_SESSION_TTL"),
			Destination: &cfg.sessionTTL,
		},
	}
}

func retrievalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k-docs",
			Usage:       "Document fragments retrieved per turn",
			Value:       retrieval.DefaultDocumentK,
			Sources:     cli.EnvVars("FLOORBOT_TOP_K_DOCS"),
			Destination: &cfg.documentK,
		},
		&cli.IntFlag{
			Name:        "top-k-images",
			Usage:       "Image fragments retrieved per turn",
			Value:       retrieval.DefaultImageK,
			Sources:     cli.EnvVars("FLOORBOT_TOP_K_IMAGES"),
			Destination: &cfg.imageK,
		},
		&cli.FloatFlag{
			Name:        "similarity-floor",
			Usage:       "Minimum similarity for document fragments",
			Value:       retrieval.DefaultSimilarityFloor,
			Sources:     cli.EnvVars("FLOORBOT_SIMILARITY_FLOOR"),
			Destination: &cfg.similarityFloor,
		},
		&cli.IntFlag{
			Name:        "history-window",
			Usage:       "Prior messages passed to the language model",
			Value:       chat.DefaultHistoryWindow,
			Sources:     cli.EnvVars("FLOORBOT_HISTORY_WINDOW"),
			Destination: &cfg.historyWindow,
		},
		&cli.IntFlag{
			Name:        "signal-history",
			Usage:       "Prior user messages scanned for specific and comparison signals",
			Sources:     cli.EnvVars("FLOORBOT_SIGNAL_HISTORY"),
			Destination: &cfg.signalHistory,
		},
		&cli.IntFlag{
			Name:        "max-images",
			Usage:       "Images returned per answer",
			Value:       retrieval.DefaultMaxImages,
			Sources:     cli.EnvVars("FLOORBOT_MAX_IMAGES"),
			Destination: &cfg.maxImages,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies deciding lead status",
			Sources:     cli.EnvVars("FLOORBOT_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

func exportFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for chat transcripts",
			Sources:     cli.EnvVars("FLOORBOT_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "bucket-prefix",
			Usage:       "Object prefix for chat transcripts",
			Sources:     cli.EnvVars("FLOORBOT_BUCKET_PREFIX"),
			Destination: &cfg.bucketPrefix,
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset",
			Usage:       "BigQuery dataset for lead insights",
			Sources:     cli.EnvVars("FLOORBOT_BIGQUERY_DATASET"),
			Destination: &cfg.bigqueryDataset,
		},
		&cli.StringFlag{
			Name:        "bigquery-table",
			Usage:       "BigQuery table for lead insights",
			Value:       "lead_insights",
			Sources:     cli.EnvVars("FLOORBOT_BIGQUERY_TABLE"),
			Destination: &cfg.bigqueryTable,
		},
	}
}

// setup configures logging and returns a context carrying the logger
func (cfg *config) setup(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

func (cfg *config) onClose(fn func() error) {
	cfg.closers = append(cfg.closers, fn)
}

// close releases every client opened through cfg, newest first
func (cfg *config) close(ctx context.Context) {
	for i := len(cfg.closers) - 1; i >= 0; i-- {
		if err := cfg.closers[i](); err != nil {
			logging.From(ctx).Warn("failed to close client", "error", err)
		}
	}
	cfg.closers = nil
}

func (cfg *config) newCatalog() (*catalog.Catalog, error) {
	if cfg.catalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.catalogPath)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.New("gemini-project or project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	return adapter.NewGemini(ctx, project, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithTemperature(float32(cfg.temperature)),
		adapter.WithMaxOutputTokens(int32(cfg.maxTokens)),
	)
}

// newIndex opens the similarity index. A missing snapshot yields an empty
// memory index.
func (cfg *config) newIndex(ctx context.Context) (index.Index, error) {
	switch cfg.indexKind {
	case indexMemory:
		if _, err := os.Stat(cfg.snapshotPath); errors.Is(err, fs.ErrNotExist) {
			logging.From(ctx).Warn("fragment snapshot not found, starting with an empty index", "path", cfg.snapshotPath)
			return index.NewMemory(), nil
		}
		return index.LoadMemory(ctx, cfg.snapshotPath)

	case indexFirestore:
		if cfg.project == "" {
			return nil, goerr.New("project is required for the firestore index")
		}
		idx, err := index.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, err
		}
		cfg.onClose(idx.Close)
		return idx, nil

	default:
		return nil, goerr.New("unsupported index backend",
			goerr.V("index", cfg.indexKind),
			goerr.V("supported", []string{indexMemory, indexFirestore}))
	}
}

// newLexical builds the keyword index over every fragment in idx
func (cfg *config) newLexical(ctx context.Context, idx index.Index) (*index.Lexical, error) {
	fragments, err := idx.Fragments(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list fragments")
	}
	lexical, err := index.NewLexical(fragments)
	if err != nil {
		return nil, err
	}
	cfg.onClose(lexical.Close)
	return lexical, nil
}

func (cfg *config) newSessionStore(ctx context.Context) (repository.SessionStore, error) {
	opts := []repository.Option{repository.WithTTL(cfg.sessionTTL)}

	switch cfg.storeKind {
	case storeMemory:
		return repository.NewMemory(opts...), nil

	case storeSQLite:
		store, err := repository.NewSQLite(cfg.sqlitePath, opts...)
		if err != nil {
			return nil, err
		}
		cfg.onClose(store.Close)
		return store, nil

	case storeRedis:
		store := repository.NewRedis(cfg.redisAddr, cfg.redisPassword, int(cfg.redisDB), opts...)
		cfg.onClose(store.Close)
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case storeFirestore:
		if cfg.project == "" {
			return nil, goerr.New("project is required for the firestore session store")
		}
		store, err := repository.NewFirestore(ctx, cfg.project, cfg.database, opts...)
		if err != nil {
			return nil, err
		}
		cfg.onClose(store.Close)
		return store, nil

	default:
		return nil, goerr.New("unsupported session store",
			goerr.V("session-store", cfg.storeKind),
			goerr.V("supported", []string{storeMemory, storeSQLite, storeRedis, storeFirestore}))
	}
}

func (cfg *config) newRetriever(idx index.Index, embedder adapter.Embedder) *retrieval.Retriever {
	return retrieval.New(idx, embedder,
		retrieval.WithDocumentK(int(cfg.documentK)),
		retrieval.WithImageK(int(cfg.imageK)),
		retrieval.WithSimilarityFloor(cfg.similarityFloor),
	)
}

// chatDeps is everything a chat usecase needs besides the session store
type chatDeps struct {
	catalog *catalog.Catalog
	index   index.Index
	gemini  *adapter.GeminiClient
	store   repository.SessionStore
}

func (cfg *config) newChatDeps(ctx context.Context) (*chatDeps, error) {
	cat, err := cfg.newCatalog()
	if err != nil {
		return nil, err
	}
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := cfg.newIndex(ctx)
	if err != nil {
		return nil, err
	}
	store, err := cfg.newSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	return &chatDeps{catalog: cat, index: idx, gemini: gemini, store: store}, nil
}

// newChatUseCase wires the chat usecase with the optional policy and export
// sinks that are configured
func (cfg *config) newChatUseCase(ctx context.Context, deps *chatDeps) (*chat.UseCase, error) {
	opts := []chat.Option{
		chat.WithCatalog(deps.catalog),
		chat.WithDetector(lead.NewDetector(
			lead.WithGazetteer(deps.catalog.Gazetteer...),
			lead.WithHistoryWindow(int(cfg.signalHistory)),
		)),
		chat.WithHistoryWindow(int(cfg.historyWindow)),
		chat.WithMaxImages(int(cfg.maxImages)),
	}

	if cfg.policyDir != "" {
		p, err := policy.New(ctx, cfg.policyDir)
		if err != nil {
			return nil, err
		}
		if p != nil {
			opts = append(opts, chat.WithPolicy(p))
		}
	}

	if cfg.bucket != "" {
		var storageOpts []adapter.StorageOption
		if cfg.bucketPrefix != "" {
			storageOpts = append(storageOpts, adapter.WithPrefix(cfg.bucketPrefix))
		}
		archive, err := adapter.NewStorage(ctx, cfg.bucket, storageOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chat.WithArchive(archive))
	}

	if cfg.bigqueryDataset != "" {
		if cfg.project == "" {
			return nil, goerr.New("project is required for BigQuery export")
		}
		bq, err := adapter.NewBigQuery(ctx, cfg.project, cfg.bigqueryDataset, adapter.WithTable(cfg.bigqueryTable))
		if err != nil {
			return nil, err
		}
		cfg.onClose(bq.Close)
		if err := bq.EnsureTable(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, chat.WithInsightSink(bq))
	}

	retriever := cfg.newRetriever(deps.index, deps.gemini)
	return chat.New(deps.store, retriever, deps.gemini, opts...), nil
}

package main

import (
	"log/slog"
	"strings"
	"sync"

	"takeone/internal/config"
	"takeone/internal/ingest"
	"takeone/internal/logging"
	"takeone/internal/scenestore"
	"takeone/internal/scriptseq"
	"takeone/internal/search"
	"takeone/internal/services/embedding"
	"takeone/internal/services/llm"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	storeOnce sync.Once
	store     *scenestore.Store
	storeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) ensureStore() (*scenestore.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = scenestore.Open(cfg, c.ensureLogger())
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

func (c *commandContext) llmClient() (*llm.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}), nil
}

func (c *commandContext) embeddingClient() (*embedding.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return embedding.NewClient(embedding.Config{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	}), nil
}

func (c *commandContext) searchEngine() (*search.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	embedder, err := c.embeddingClient()
	if err != nil {
		return nil, err
	}
	completer, err := c.llmClient()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	expander := search.NewExpander(completer, cfg.Search.MaxVariants, logger)
	return search.NewEngine(store, embedder, expander,
		cfg.Search.DefaultTopK, cfg.Search.OverfetchFactor, logger), nil
}

func (c *commandContext) scriptDecomposer() (*scriptseq.Decomposer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	engine, err := c.searchEngine()
	if err != nil {
		return nil, err
	}
	completer, err := c.llmClient()
	if err != nil {
		return nil, err
	}
	return scriptseq.NewDecomposer(engine, completer,
		cfg.Script.CanonicalLanguage, cfg.Script.ResultsPerAction, c.ensureLogger()), nil
}

func (c *commandContext) ingestPipeline() (*ingest.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	embedder, err := c.embeddingClient()
	if err != nil {
		return nil, err
	}
	completer, err := c.llmClient()
	if err != nil {
		return nil, err
	}

	detector := &ingest.FFmpegDetector{
		FFmpegBinary:    cfg.Ingest.FFmpegBinary,
		FFprobeBinary:   cfg.Ingest.FFprobeBinary,
		Threshold:       cfg.Ingest.SceneThreshold,
		MinSceneSeconds: cfg.Ingest.MinSceneSeconds,
		MaxSceneSeconds: cfg.Ingest.MaxSceneSeconds,
	}
	extractor := &ingest.FFmpegExtractor{FFmpegBinary: cfg.Ingest.FFmpegBinary}
	analyzer := ingest.NewVisionAnalyzer(completer)

	return ingest.NewPipeline(detector, extractor, analyzer, embedder, store,
		cfg.Paths.ClipsDir, cfg.Paths.ThumbnailsDir, cfg.Ingest.Workers, c.ensureLogger()), nil
}

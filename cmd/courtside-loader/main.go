// Command courtside-loader ingests a JSONL fan-commentary corpus:
// embeds each record in batches and upserts it into the commentary index.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/config"
	dbRedis "github.com/courtside-ai/courtside/internal/db/redis"
	"github.com/courtside-ai/courtside/internal/domain/chunk"
	logpkg "github.com/courtside-ai/courtside/internal/logger"
	chunkrepo "github.com/courtside-ai/courtside/internal/repository/chunk"
	openaiTransport "github.com/courtside-ai/courtside/internal/transport/openai"
)

// record is one line of the input corpus.
type record struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Upvotes  int     `json:"upvotes"`
	Official bool    `json:"official"`
	Quality  float64 `json:"quality"`
}

func main() {
	var (
		input     = flag.String("input", "", "path to JSONL corpus (required)")
		batchSize = flag.Int("batch", 32, "embedding batch size")
		reset     = flag.Bool("reset", false, "drop and recreate the index before loading")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: courtside-loader -input corpus.jsonl [-batch 32] [-reset]")
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create commentary store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Commentary store not ready", zap.Error(err))
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := chunkrepo.New(store, cfg.Database.KeyPrefix, cfg.Retrieval.IndexName).
		WithHNSW(chunkrepo.HNSWConfig{
			M:           cfg.Retrieval.HNSWM,
			EFConstruct: cfg.Retrieval.HNSWEFConstruct,
		})

	if *reset {
		if err := repo.ResetIndex(ctx); err != nil {
			logger.Fatal("Failed to reset index", zap.Error(err))
		}
		logger.Info("Index reset")
	}
	if err := repo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure index", zap.Error(err))
	}

	f, err := os.Open(*input)
	if err != nil {
		logger.Fatal("Failed to open corpus", zap.String("path", *input), zap.Error(err))
	}
	defer f.Close()

	loaded, skipped, err := load(ctx, f, embedder, repo, *batchSize, logger)
	if err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}

	logger.Info("Load complete", zap.Int("loaded", loaded), zap.Int("skipped", skipped))
}

type upserter interface {
	Upsert(ctx context.Context, chunks []chunk.Chunk) error
}

func load(
	ctx context.Context,
	f *os.File,
	embedder *openaiTransport.Embedder,
	repo upserter,
	batchSize int,
	logger *zap.Logger,
) (loaded, skipped int, err error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var batch []record
	line := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text
		}

		emb, err := embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(emb.Embeddings) != len(batch) {
			return fmt.Errorf("embed batch: want %d vectors, got %d", len(batch), len(emb.Embeddings))
		}

		chunks := make([]chunk.Chunk, 0, len(batch))
		for i, rec := range batch {
			c, err := chunk.New(rec.ID, rec.Text, rec.Source, emb.Embeddings[i],
				rec.Upvotes, rec.Official, rec.Quality)
			if err != nil {
				logger.Warn("Skipping invalid record", zap.String("id", rec.ID), zap.Error(err))
				skipped++
				continue
			}
			chunks = append(chunks, c)
		}

		if err := repo.Upsert(ctx, chunks); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		loaded += len(chunks)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warn("Skipping malformed line", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}

		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return loaded, skipped, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return loaded, skipped, fmt.Errorf("read corpus: %w", err)
	}
	if err := flush(); err != nil {
		return loaded, skipped, err
	}

	return loaded, skipped, nil
}

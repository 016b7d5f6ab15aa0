// Package tools implements the capabilities registered with the orchestrator.
package tools

import (
	"context"

	"github.com/courtside-ai/courtside/internal/domain/chunk"
)

// StatsStore is the relational store contract for the statistics tool.
type StatsStore interface {
	Schema(ctx context.Context) (string, error)
	Query(ctx context.Context, query string) (columns []string, rows []map[string]any, err error)
}

// Retriever is the ranking-layer contract for the commentary tool.
type Retriever interface {
	Search(ctx context.Context, queryText string, k int) ([]chunk.Scored, error)
	DefaultK() int
}

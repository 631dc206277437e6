package api

import (
	"context"
	"path/filepath"
	"testing"

	"resume-parser-go/internal/aggregator"
	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/config"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type nopRunner struct{}

func (nopRunner) ProcessDirectory(context.Context, string, string) (*types.BatchResult, error) {
	return &types.BatchResult{}, nil
}

func TestNewServerRegistersRoutes(t *testing.T) {
	out := t.TempDir()
	cfg := &config.Config{Server: config.ServerConfig{Address: "127.0.0.1:0", APIKeys: []string{"k"}}}
	agg := aggregator.New(aggregator.NewCSVStore(filepath.Join(out, "t.csv")), zerolog.Nop())
	bh := handler.NewBatchHandler(nopRunner{}, agg, t.TempDir(), out, "", zerolog.Nop())

	h := NewServer(cfg, bh, zerolog.Nop())

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/aggregate", nil)
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())
}

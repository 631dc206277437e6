package handler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"

	"resume-parser-go/internal/aggregator"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// BatchRunner 执行一次目录批处理
type BatchRunner interface {
	ProcessDirectory(ctx context.Context, inputDir, outputDir string) (*types.BatchResult, error)
}

// JSONAggregator 把候选人JSON写入汇总表
type JSONAggregator interface {
	AggregateJSON(ctx context.Context, payload string) (int, error)
}

// BatchRequest POST /api/v1/batches 请求体, 目录为空时使用配置中的默认值
type BatchRequest struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
}

// BatchResponse 批处理响应
type BatchResponse struct {
	RunID       string                             `json:"run_id"`
	Files       map[string][]types.CandidateRecord `json:"files"`
	Records     int                                `json:"records"`
	Degraded    int                                `json:"degraded"`
	FailedFiles int                                `json:"failed_files"`
	Warning     string                             `json:"warning,omitempty"`
}

// AggregateRequest POST /api/v1/aggregate 请求体
type AggregateRequest struct {
	Payload string `json:"payload"`
}

// BatchHandler 批处理与汇总接口
type BatchHandler struct {
	runner      BatchRunner
	aggregator  JSONAggregator
	inputDir    string
	outputDir   string
	resultsFile string
	logger      zerolog.Logger

	// runMu 同一时间只允许一个批处理, 避免并发写同一输出目录
	runMu sync.Mutex
}

// NewBatchHandler 创建处理器. resultsFile 为空时不落盘结果.
func NewBatchHandler(runner BatchRunner, agg JSONAggregator, inputDir, outputDir, resultsFile string, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		runner:      runner,
		aggregator:  agg,
		inputDir:    inputDir,
		outputDir:   outputDir,
		resultsFile: resultsFile,
		logger:      logger,
	}
}

// HandleRunBatch 同步执行批处理并返回按文件分组的记录
func (h *BatchHandler) HandleRunBatch(ctx context.Context, c *app.RequestContext) {
	var req BatchRequest
	if body := c.Request.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是有效的JSON"})
			return
		}
	}
	if req.InputDir == "" {
		req.InputDir = h.inputDir
	}
	if req.OutputDir == "" {
		req.OutputDir = h.outputDir
	}
	if req.InputDir == "" || req.OutputDir == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "缺少 input_dir 或 output_dir"})
		return
	}

	if !h.runMu.TryLock() {
		c.JSON(consts.StatusConflict, utils.H{"error": "已有批处理正在运行"})
		return
	}
	defer h.runMu.Unlock()

	h.logger.Info().Str("input_dir", req.InputDir).Str("output_dir", req.OutputDir).Msg("收到批处理请求")
	result, err := h.runner.ProcessDirectory(ctx, req.InputDir, req.OutputDir)
	if err != nil {
		h.logger.Error().Err(err).Msg("批处理失败")
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": err.Error()})
		return
	}

	if h.resultsFile != "" {
		path := filepath.Join(req.OutputDir, h.resultsFile)
		if err := processor.SaveResults(path, result); err != nil {
			h.logger.Warn().Err(err).Str("path", path).Msg("保存批处理结果失败")
		}
	}

	records, degraded, failed := result.Stats()
	resp := BatchResponse{
		RunID:       result.RunID,
		Files:       result.ByFile(),
		Records:     records,
		Degraded:    degraded,
		FailedFiles: failed,
	}
	if len(result.Files) == 0 {
		resp.Warning = processor.ErrNoInputFiles.Error()
	}
	c.JSON(consts.StatusOK, resp)
}

// HandleAggregate 把请求中的候选人JSON写入汇总表
func (h *BatchHandler) HandleAggregate(ctx context.Context, c *app.RequestContext) {
	var req AggregateRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil || req.Payload == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "缺少 payload"})
		return
	}

	rows, err := h.aggregator.AggregateJSON(ctx, req.Payload)
	if err != nil {
		var aggErr *aggregator.AggregateError
		if errors.As(err, &aggErr) && aggErr.Op != "append" {
			c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": err.Error(), "op": aggErr.Op})
			return
		}
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"rows_appended": rows})
}

// HandleHealth 健康检查
func (h *BatchHandler) HandleHealth(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

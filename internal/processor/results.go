package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"resume-parser-go/internal/types"
)

// SaveResults 把 源文件 -> 候选人记录 的映射写为JSON
func SaveResults(path string, result *types.BatchResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建结果目录失败: %w", err)
	}
	data, err := json.MarshalIndent(result.ByFile(), "", "  ")
	if err != nil {
		return fmt.Errorf("序列化批处理结果失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入批处理结果失败 %s: %w", path, err)
	}
	return nil
}

// LoadResults 读取 SaveResults 写出的映射
func LoadResults(path string) (map[string][]types.CandidateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取批处理结果失败 %s: %w", path, err)
	}
	var out map[string][]types.CandidateRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析批处理结果失败: %w", err)
	}
	return out, nil
}

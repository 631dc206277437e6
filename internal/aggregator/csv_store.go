package aggregator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/types"
)

// RowSink 表格行的追加写入目标
type RowSink interface {
	AppendRows(rows []types.TableRow) error
}

// csvMu 进程内所有 CSVStore 共用, 保证表头只写一次且行不交错
var csvMu sync.Mutex

// CSVStore 追加写入的CSV汇总表
type CSVStore struct {
	path string
}

var _ RowSink = (*CSVStore)(nil)

// NewCSVStore 创建CSV汇总表, 文件在首次写入时创建
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path 返回表格文件路径
func (s *CSVStore) Path() string {
	return s.path
}

// AppendRows 以追加模式打开文件写入行; 文件不存在或为空时先写表头
func (s *CSVStore) AppendRows(rows []types.TableRow) error {
	csvMu.Lock()
	defer csvMu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建汇总表目录失败: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开汇总表失败 %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("读取汇总表信息失败: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(constants.TableHeader); err != nil {
			return fmt.Errorf("写入表头失败: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row.Values()); err != nil {
			return fmt.Errorf("写入数据行失败: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("刷新汇总表失败: %w", err)
	}
	return nil
}

// ReadTable 读取整张表(含表头)
func ReadTable(path string) ([][]string, error) {
	csvMu.Lock()
	defer csvMu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开汇总表失败 %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(constants.TableHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析汇总表失败 %s: %w", path, err)
	}
	return records, nil
}

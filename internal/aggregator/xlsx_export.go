package aggregator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Candidates"

// ExportXLSX 把CSV汇总表复制为xlsx, 返回写入的数据行数(不含表头)
func ExportXLSX(csvPath, xlsxPath string) (int, error) {
	table, err := ReadTable(csvPath)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return 0, fmt.Errorf("xlsx sheet: %w", err)
	}
	index, err := f.GetSheetIndex(xlsxSheet)
	if err != nil {
		return 0, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for r, record := range table {
		for c, v := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return 0, fmt.Errorf("xlsx cell: %w", err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return 0, fmt.Errorf("xlsx write %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 24) // name
	_ = f.SetColWidth(xlsxSheet, "B", "B", 30) // email
	_ = f.SetColWidth(xlsxSheet, "C", "C", 18) // mobile
	_ = f.SetColWidth(xlsxSheet, "D", "D", 60) // experience
	_ = f.SetColWidth(xlsxSheet, "E", "E", 40) // skills

	if err := os.MkdirAll(filepath.Dir(xlsxPath), 0o755); err != nil {
		return 0, fmt.Errorf("创建导出目录失败: %w", err)
	}
	if err := f.SaveAs(xlsxPath); err != nil {
		return 0, fmt.Errorf("xlsx save: %w", err)
	}

	rows := len(table) - 1
	if rows < 0 {
		rows = 0
	}
	return rows, nil
}

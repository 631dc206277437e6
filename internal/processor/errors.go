package processor

import (
	"errors"
	"fmt"
)

// 文件处理阶段
const (
	StageTranscribe = "transcribe"
	StageDetect     = "detect"
	StageSplit      = "split"
	StageExtract    = "extract"
)

// 定义基础错误类型
var (
	ErrTranscriptionFailed = errors.New("PDF转写失败")
	ErrDetectionFailed     = errors.New("多简历检测失败")
	ErrNoInputFiles        = errors.New("输入目录中没有PDF文件")
	ErrFilePanicked        = errors.New("文件处理发生panic")
)

// FileProcessError 单个文件在某个阶段的失败
type FileProcessError struct {
	SourceFile string
	Stage      string
	Err        error
}

func (e *FileProcessError) Error() string {
	return fmt.Sprintf("处理文件失败 (阶段:%s, 文件:%s): %v", e.Stage, e.SourceFile, e.Err)
}

func (e *FileProcessError) Unwrap() error {
	return e.Err
}

// Is 按阶段哨兵错误匹配, 同时透传内部错误
func (e *FileProcessError) Is(target error) bool {
	switch e.Stage {
	case StageTranscribe:
		if target == ErrTranscriptionFailed {
			return true
		}
	case StageDetect:
		if target == ErrDetectionFailed {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

func newFileError(sourceFile, stage string, err error) error {
	return &FileProcessError{SourceFile: sourceFile, Stage: stage, Err: err}
}

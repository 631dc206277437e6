package constants

const (
	// DefaultCSVFileName 默认汇总表文件名
	DefaultCSVFileName = "parsed_resumes.csv"

	// MarkdownExt 转写产物扩展名
	MarkdownExt = ".md"

	// PDFExt 输入文件扩展名
	PDFExt = ".pdf"

	// ArtifactRunPrefix 对象存储中每次运行的产物前缀, 格式: runs/{runID}/{file}
	ArtifactRunPrefix = "runs"

	// EventTypeFileProcessed 单文件处理完成事件
	EventTypeFileProcessed = "resume.file.processed"
	// EventTypeBatchCompleted 批处理完成事件
	EventTypeBatchCompleted = "resume.batch.completed"
)

// TableHeader 汇总表表头, 顺序与 types.TableRow.Values 一致
var TableHeader = []string{"Name", "Email", "Mobile", "Experience", "Skills"}

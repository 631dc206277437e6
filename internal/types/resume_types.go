package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// 记录字段名, 与抽取提示词中约定的JSON键保持一致
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldMobile         = "mobile"
	FieldEducation      = "education"
	FieldExperience     = "experience"
	FieldSkills         = "skills"
	FieldCertifications = "certifications"
	FieldResumeIndex    = "resume_index"
	FieldSourceFile     = "source_file"
)

// DetectionResult 多简历检测结果
type DetectionResult struct {
	MultipleResumes bool `json:"multiple_resumes"`
	ResumeCount     int  `json:"resume_count"`
}

// DefaultDetection 检测失败时使用的安全默认值: 视为单份简历
func DefaultDetection() DetectionResult {
	return DetectionResult{MultipleResumes: false, ResumeCount: 1}
}

// LLMResult 对模型返回做带标签的包装.
// Parsed 为 false 时, Value 是该阶段约定的降级默认值, Raw 保留模型原始输出便于排查.
type LLMResult[T any] struct {
	Value  T
	Parsed bool
	Raw    string
}

// Parsed 构造一个解析成功的结果
func Parsed[T any](v T, raw string) LLMResult[T] {
	return LLMResult[T]{Value: v, Parsed: true, Raw: raw}
}

// Unparsed 构造一个降级结果
func Unparsed[T any](fallback T, raw string) LLMResult[T] {
	return LLMResult[T]{Value: fallback, Parsed: false, Raw: raw}
}

// EducationEntry 教育经历
type EducationEntry struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	GraduationYear string `json:"graduation_year"`
}

// CandidateRecord 单个候选人的结构化记录.
// Fields 保存模型返回的原始映射, 抽取失败时为空映射; ResumeIndex 与 SourceFile 总是由调用方填写.
type CandidateRecord struct {
	Fields      map[string]interface{}
	ResumeIndex int
	SourceFile  string
	Degraded    bool
}

// NewEmptyRecord 创建降级的空记录
func NewEmptyRecord(sourceFile string, resumeIndex int) CandidateRecord {
	return CandidateRecord{
		Fields:      map[string]interface{}{},
		ResumeIndex: resumeIndex,
		SourceFile:  sourceFile,
		Degraded:    true,
	}
}

// IsEmpty 判断记录是否不含任何抽取字段
func (r CandidateRecord) IsEmpty() bool {
	return len(r.Fields) == 0
}

// Name 返回姓名, 缺失时为空字符串
func (r CandidateRecord) Name() string { return r.stringField(FieldName) }

// Email 返回邮箱
func (r CandidateRecord) Email() string { return r.stringField(FieldEmail) }

// Mobile 返回电话
func (r CandidateRecord) Mobile() string { return r.stringField(FieldMobile) }

// Skills 返回技能列表, 忽略null元素
func (r CandidateRecord) Skills() []string { return r.stringList(FieldSkills) }

// Certifications 返回证书列表
func (r CandidateRecord) Certifications() []string { return r.stringList(FieldCertifications) }

// Education 返回教育经历. 非对象元素被跳过.
func (r CandidateRecord) Education() []EducationEntry {
	raw, ok := r.Fields[FieldEducation].([]interface{})
	if !ok {
		return nil
	}
	entries := make([]EducationEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, EducationEntry{
			Institution:    scalarString(m["institution"]),
			Degree:         scalarString(m["degree"]),
			GraduationYear: scalarString(m["graduation_year"]),
		})
	}
	return entries
}

func (r CandidateRecord) stringField(key string) string {
	if r.Fields == nil {
		return ""
	}
	return scalarString(r.Fields[key])
}

func (r CandidateRecord) stringList(key string) []string {
	raw, ok := r.Fields[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		out = append(out, scalarString(item))
	}
	return out
}

// scalarString 将JSON标量转为字符串, null返回空串
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// MarshalJSON 将原始字段展开, 并附加 resume_index 与 source_file
func (r CandidateRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[FieldResumeIndex] = r.ResumeIndex
	flat[FieldSourceFile] = r.SourceFile
	return json.Marshal(flat)
}

// UnmarshalJSON 是 MarshalJSON 的逆过程
func (r *CandidateRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if idx, ok := flat[FieldResumeIndex].(float64); ok {
		r.ResumeIndex = int(idx)
	}
	if src, ok := flat[FieldSourceFile].(string); ok {
		r.SourceFile = src
	}
	delete(flat, FieldResumeIndex)
	delete(flat, FieldSourceFile)
	r.Fields = flat
	r.Degraded = len(flat) == 0
	return nil
}

// TableRow 写入汇总表的一行, 是 CandidateRecord 的精简投影
type TableRow struct {
	Name       string
	Email      string
	Mobile     string
	Experience string
	Skills     string
}

// Values 按表头顺序返回列值
func (t TableRow) Values() []string {
	return []string{t.Name, t.Email, t.Mobile, t.Experience, t.Skills}
}

// FileResult 单个文件的处理结果
type FileResult struct {
	SourceFile string            `json:"source_file"`
	Records    []CandidateRecord `json:"records"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Failed 文件级处理是否失败
func (f FileResult) Failed() bool {
	return f.Error != ""
}

// BatchResult 一次批处理运行的完整结果, Files 保持输入目录的列举顺序
type BatchResult struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileResult `json:"files"`
}

// ByFile 返回 源文件 -> 候选人记录列表 的映射
func (b *BatchResult) ByFile() map[string][]CandidateRecord {
	out := make(map[string][]CandidateRecord, len(b.Files))
	for _, f := range b.Files {
		out[f.SourceFile] = f.Records
	}
	return out
}

// Stats 统计记录总数、降级记录数与失败文件数
func (b *BatchResult) Stats() (records, degraded, failedFiles int) {
	for _, f := range b.Files {
		if f.Failed() {
			failedFiles++
		}
		for _, r := range f.Records {
			records++
			if r.Degraded {
				degraded++
			}
		}
	}
	return records, degraded, failedFiles
}

// FileProcessedEvent 单文件处理完成后发布的事件
type FileProcessedEvent struct {
	EventID        string    `json:"event_id"`
	RunID          string    `json:"run_id"`
	SourceFile     string    `json:"source_file"`
	CandidateCount int       `json:"candidate_count"`
	DegradedCount  int       `json:"degraded_count"`
	Failed         bool      `json:"failed"`
	Error          string    `json:"error,omitempty"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// BatchCompletedEvent 批处理完成后发布的事件
type BatchCompletedEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	FileCount   int       `json:"file_count"`
	RecordCount int       `json:"record_count"`
	FailedFiles int       `json:"failed_files"`
	CompletedAt time.Time `json:"completed_at"`
}

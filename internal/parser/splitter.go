package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// Splitter 将包含多份简历的文本切分为单份简历片段.
// 模型只负责给出每份简历的起始行, 切分在本地完成, 因此片段拼接后与原文完全一致.
type Splitter struct {
	model  model.ToolCallingChatModel
	logger zerolog.Logger
}

// SplitterOption 切分器配置选项
type SplitterOption func(*Splitter)

// WithSplitterLogger 配置日志记录器
func WithSplitterLogger(logger zerolog.Logger) SplitterOption {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// NewSplitter 创建简历切分器
func NewSplitter(m model.ToolCallingChatModel, opts ...SplitterOption) *Splitter {
	s := &Splitter{model: m, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type markerResponse struct {
	Markers []string `json:"markers"`
}

// Split 从不返回错误: 任何失败都退化为整篇文本一个片段, Parsed=false
func (s *Splitter) Split(ctx context.Context, text string, detection types.DetectionResult) types.LLMResult[[]string] {
	whole := []string{text}
	if !detection.MultipleResumes {
		return types.Parsed(whole, "")
	}

	raw, err := callModel(ctx, s.model, "split", fmt.Sprintf(splitPrompt, detection.ResumeCount), text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("切分调用失败, 整篇作为一份简历")
		return types.Unparsed(whole, "")
	}

	markers, ok := parseMarkers(raw)
	if !ok {
		s.logger.Warn().Str("raw", tracing.TruncateString(raw, logPreviewLength)).Msg("切分结果不是起始行列表")
		return types.Unparsed(whole, raw)
	}

	offsets, ok := locateMarkers(text, markers)
	if !ok {
		s.logger.Warn().Int("markers", len(markers)).Msg("起始行无法按顺序定位")
		return types.Unparsed(whole, raw)
	}

	segments := cutAt(text, offsets)
	if len(segments) < 2 || len(segments) > detection.ResumeCount {
		s.logger.Warn().
			Int("segments", len(segments)).
			Int("resume_count", detection.ResumeCount).
			Msg("切分数量与检测结果不符")
		return types.Unparsed(whole, raw)
	}
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return types.Unparsed(whole, raw)
		}
	}

	s.logger.Debug().Int("segments", len(segments)).Msg("简历切分完成")
	return types.Parsed(segments, raw)
}

// parseMarkers 接受 {"markers":[...]} 或裸数组
func parseMarkers(raw string) ([]string, bool) {
	var markers []string
	if obj := ExtractJSONObject(raw); obj != "" {
		var resp markerResponse
		if err := json.Unmarshal([]byte(obj), &resp); err == nil && resp.Markers != nil {
			markers = resp.Markers
		}
	}
	if markers == nil {
		arr := ExtractJSONArray(raw)
		if arr == "" || json.Unmarshal([]byte(arr), &markers) != nil {
			return nil, false
		}
	}

	out := make([]string, 0, len(markers))
	for _, m := range markers {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out, len(out) > 0
}

// locateMarkers 按顺序定位每个起始行, 返回严格递增的字节偏移
func locateMarkers(text string, markers []string) ([]int, bool) {
	folded := newFoldedText(text)
	offsets := make([]int, 0, len(markers))
	pos := 0
	for _, marker := range markers {
		idx := exactIndex(text, marker, pos)
		if idx < 0 {
			idx = folded.index(marker, pos)
		}
		if idx < 0 {
			return nil, false
		}
		if len(offsets) > 0 && idx <= offsets[len(offsets)-1] {
			return nil, false
		}
		offsets = append(offsets, idx)
		pos = idx + 1
	}
	return offsets, true
}

func exactIndex(text, marker string, from int) int {
	marker = strings.TrimSpace(marker)
	if from >= len(text) || marker == "" {
		return -1
	}
	i := strings.Index(text[from:], marker)
	if i < 0 {
		return -1
	}
	return from + i
}

// cutAt 第一个片段总是从0开始, 起始行之前的内容归入第一份简历
func cutAt(text string, offsets []int) []string {
	if len(offsets) == 0 {
		return []string{text}
	}
	bounds := append([]int{0}, offsets[1:]...)
	segments := make([]string, 0, len(bounds))
	for i, start := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		segments = append(segments, text[start:end])
	}
	return segments
}

// foldedText 忽略大小写并把连续空白折叠为单个空格, 同时记录每个字节在原文中的偏移
type foldedText struct {
	norm    string
	offsets []int
}

func newFoldedText(text string) foldedText {
	var b strings.Builder
	offsets := make([]int, 0, len(text))
	lastSpace := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteByte(' ')
			offsets = append(offsets, i)
			continue
		}
		lastSpace = false
		lower := unicode.ToLower(r)
		n := utf8.RuneLen(lower)
		if n < 0 {
			lower, n = utf8.RuneError, utf8.RuneLen(utf8.RuneError)
		}
		b.WriteRune(lower)
		for k := 0; k < n; k++ {
			offsets = append(offsets, i)
		}
	}
	return foldedText{norm: b.String(), offsets: offsets}
}

func foldMarker(marker string) string {
	return strings.ToLower(strings.Join(strings.Fields(marker), " "))
}

// index 在原文偏移 from 之后查找折叠后的起始行, 返回原文字节偏移
func (f foldedText) index(marker string, from int) int {
	needle := foldMarker(marker)
	if needle == "" {
		return -1
	}
	start := 0
	for start < len(f.offsets) && f.offsets[start] < from {
		start++
	}
	if start >= len(f.norm) {
		return -1
	}
	i := strings.Index(f.norm[start:], needle)
	if i < 0 {
		return -1
	}
	return f.offsets[start+i]
}

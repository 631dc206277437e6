package aggregator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/types"
)

var (
	// ErrNotAnObject 候选人元素不是JSON对象
	ErrNotAnObject = errors.New("候选人元素不是JSON对象")
	// ErrInvalidPayload 负载既不是JSON数组也不是JSON对象
	ErrInvalidPayload = errors.New("负载不是有效的JSON数组")
)

// lineBreakRe 连续的换行(含空行)整体替换为一个空格
var lineBreakRe = regexp.MustCompile(`[\r\n]+`)

// skillSeparator 技能列的连接符
const skillSeparator = ";"

// ParseCandidates 解析模型返回的候选人数组. 允许 ```json 代码块包裹, 单个对象会被包装为数组.
// 元素类型在这里不做检查, 由 NormalizeCandidate 负责.
func ParseCandidates(payload string) ([]interface{}, error) {
	body := parser.StripCodeFence(payload)
	if items, ok := decodeCandidates(body); ok {
		return items, nil
	}
	if arr := parser.ExtractJSONArray(body); arr != "" {
		if items, ok := decodeCandidates(arr); ok {
			return items, nil
		}
	}
	if obj := parser.ExtractJSONObject(body); obj != "" {
		if items, ok := decodeCandidates(obj); ok {
			return items, nil
		}
	}
	return nil, ErrInvalidPayload
}

func decodeCandidates(body string) ([]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case map[string]interface{}:
		return []interface{}{t}, true
	default:
		return nil, false
	}
}

// NormalizeCandidate 将单个候选人映射投影为表格行.
// 缺失、null 以及字面量 "null"/"None" 都写为空串.
func NormalizeCandidate(v interface{}) (types.TableRow, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return types.TableRow{}, fmt.Errorf("%w: %T", ErrNotAnObject, v)
	}
	m = types.CanonicalizeFields(m)

	return types.TableRow{
		Name:       scalarText(m[types.FieldName]),
		Email:      scalarText(m[types.FieldEmail]),
		Mobile:     scalarText(m[types.FieldMobile]),
		Experience: experienceText(m[types.FieldExperience]),
		Skills:     skillsText(m[types.FieldSkills]),
	}, nil
}

// RecordRow 将流水线产出的记录投影为表格行
func RecordRow(r types.CandidateRecord) (types.TableRow, error) {
	if r.Fields == nil {
		return types.TableRow{}, nil
	}
	return NormalizeCandidate(r.Fields)
}

func scalarText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if isNullLiteral(s) {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return compactJSON(t)
	}
}

func isNullLiteral(s string) bool {
	return strings.EqualFold(s, "null") || s == "None"
}

// experienceText 字符串原样保留, 列表与对象压缩为JSON, 换行替换为单个空格
func experienceText(v interface{}) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if isNullLiteral(strings.TrimSpace(t)) {
			return ""
		}
		s = t
	default:
		s = scalarText(t)
	}
	return lineBreakRe.ReplaceAllString(s, " ")
}

// skillsText 跳过null与空白元素后用分号连接
func skillsText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if text := scalarText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, skillSeparator)
	default:
		return scalarText(t)
	}
}

func compactJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

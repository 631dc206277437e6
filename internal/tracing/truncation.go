package tracing

import (
	"strings"
)

// span 属性与日志片段的长度上限
const (
	DefaultMaxLength = 200
	MaxRedisLength   = 100
	MaxResumeLength  = 150 // 简历正文预览
	MaxPayloadLength = 2000
)

// sensitiveFields 候选人记录中需要掩码的字段, 按子串匹配属性名
var sensitiveFields = []string{"name", "email", "mobile", "phone", "姓名", "邮箱", "电话", "api_key", "token"}

// SafeAttributeValue 敏感字段返回掩码值, 其余超长值截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 掩码个人信息. 邮箱保留首字符与域名: "jane@x.io" -> "j***@x.io".
func MaskPII(value string) string {
	if value == "" {
		return ""
	}
	if at := strings.LastIndexByte(value, '@'); at > 0 {
		local := []rune(value[:at])
		return string(local[0]) + "***" + value[at:]
	}

	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		// "王小明" -> "王*明"
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	default:
		// "13812345678" -> "13*******78"
		return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
	}
}

// TruncateString 超长时保留首尾, 中间以 "..." 连接. 按 rune 计数.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	keep := (maxLength - 3) / 2
	if keep < 1 {
		keep = 1
	}
	return string(runes[:keep]) + "..." + string(runes[len(runes)-keep:])
}

// SafeRedisKey 缓存键较长时截断
func SafeRedisKey(key string) string { return TruncateString(key, MaxRedisLength) }

// SafeResumeContent 简历正文只保留预览, 预览中的邮箱被掩码
func SafeResumeContent(content string) string {
	fields := strings.Fields(TruncateString(content, MaxResumeLength))
	for i, f := range fields {
		if strings.Contains(f, "@") {
			fields[i] = MaskPII(f)
		}
	}
	return strings.Join(fields, " ")
}

// SafePayload 模型原始输出
func SafePayload(payload string) string { return TruncateString(payload, MaxPayloadLength) }

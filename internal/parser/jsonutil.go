package parser

import (
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// StripCodeFence 去掉 ```json ... ``` 包裹, 没有代码块时原样返回
func StripCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// ExtractJSONObject 从模型输出中截取第一个完整的JSON对象, 找不到返回空串
func ExtractJSONObject(text string) string {
	return extractBalanced(StripCodeFence(text), '{', '}')
}

// ExtractJSONArray 从模型输出中截取第一个完整的JSON数组
func ExtractJSONArray(text string) string {
	return extractBalanced(StripCodeFence(text), '[', ']')
}

// extractBalanced 括号匹配时跳过字符串字面量内的括号
func extractBalanced(text string, open, closing byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return ""
	}

	level := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			level++
		case closing:
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

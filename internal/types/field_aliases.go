package types

import (
	"sort"
	"strings"
)

// fieldAliases 模型常见的同义键 -> 规范键
var fieldAliases = map[string]string{
	"full_name":       FieldName,
	"fullname":        FieldName,
	"candidate_name":  FieldName,
	"email_address":   FieldEmail,
	"e-mail":          FieldEmail,
	"mail":            FieldEmail,
	"phone":           FieldMobile,
	"phone_number":    FieldMobile,
	"mobile_number":   FieldMobile,
	"telephone":       FieldMobile,
	"tel":             FieldMobile,
	"work_experience": FieldExperience,
	"experiences":     FieldExperience,
	"skill":           FieldSkills,
	"skill_set":       FieldSkills,
	"certification":   FieldCertifications,
	"certificates":    FieldCertifications,
}

// CanonicalKey 将键名规范化: 小写, 空格转下划线, 再映射同义键
func CanonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "_")
	if canonical, ok := fieldAliases[k]; ok {
		return canonical
	}
	return k
}

// CanonicalizeFields 返回键名规范化后的新映射.
// 规范键与同义键同时存在时保留规范键的值.
func CanonicalizeFields(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		ck := CanonicalKey(k)
		if ck == k {
			out[ck] = v
		}
	}
	// 同一规范键的多个别名按键名字典序取第一个非null值
	aliases := make([]string, 0, len(in))
	for k := range in {
		if CanonicalKey(k) != k {
			aliases = append(aliases, k)
		}
	}
	sort.Strings(aliases)
	for _, k := range aliases {
		ck := CanonicalKey(k)
		if existing, exists := out[ck]; exists && existing != nil {
			continue
		}
		out[ck] = in[k]
	}
	return out
}

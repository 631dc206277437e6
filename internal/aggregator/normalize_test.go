package aggregator

import (
	"testing"

	"resume-parser-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"数组", `[{"name": "A"}, {"name": "B"}]`, 2, false},
		{"代码块包裹", "```json\n[{\"name\": \"A\"}]\n```", 1, false},
		{"单个对象", `{"name": "A"}`, 1, false},
		{"前后有文字", "Here are the candidates:\n[{\"name\": \"A\"}]\nDone.", 1, false},
		{"空数组", `[]`, 0, false},
		{"非JSON", "no candidates found", 0, true},
		{"标量", `42`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseCandidates(tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
		want types.TableRow
	}{
		{
			name: "完整字段",
			in: map[string]interface{}{
				"name": "Jane Doe", "email": "jane@example.com", "mobile": "+1-555",
				"experience": "5 years", "skills": []interface{}{"Go", "SQL"},
			},
			want: types.TableRow{Name: "Jane Doe", Email: "jane@example.com", Mobile: "+1-555", Experience: "5 years", Skills: "Go;SQL"},
		},
		{
			name: "null与缺失",
			in:   map[string]interface{}{"name": nil, "skills": nil, "experience": nil},
			want: types.TableRow{},
		},
		{
			name: "字面量null",
			in:   map[string]interface{}{"name": "null", "email": "None", "mobile": "NULL"},
			want: types.TableRow{},
		},
		{
			name: "技能中的null元素被跳过",
			in:   map[string]interface{}{"skills": []interface{}{"Go", nil, float64(3), "AWS"}},
			want: types.TableRow{Skills: "Go;3;AWS"},
		},
		{
			name: "技能中的字面量null与空白不留空位",
			in:   map[string]interface{}{"skills": []interface{}{"Python", "null", "None", " ", nil, "Go"}},
			want: types.TableRow{Skills: "Python;Go"},
		},
		{
			name: "经历换行被替换",
			in:   map[string]interface{}{"experience": "Acme\r\n\r\nGlobex\nInitech"},
			want: types.TableRow{Experience: "Acme Globex Initech"},
		},
		{
			name: "结构化经历压缩为JSON",
			in: map[string]interface{}{"experience": []interface{}{
				map[string]interface{}{"company": "Acme", "position": "Engineer"},
			}},
			want: types.TableRow{Experience: `[{"company":"Acme","position":"Engineer"}]`},
		},
		{
			name: "同义键",
			in:   map[string]interface{}{"full_name": "Jane", "phone": float64(5550100), "Email Address": "j@x.io"},
			want: types.TableRow{Name: "Jane", Email: "j@x.io", Mobile: "5550100"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := NormalizeCandidate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, row)
		})
	}
}

func TestNormalizeCandidateRejectsNonObject(t *testing.T) {
	for _, v := range []interface{}{"Jane", float64(1), []interface{}{}, nil} {
		_, err := NormalizeCandidate(v)
		assert.ErrorIs(t, err, ErrNotAnObject)
	}
}

func TestRecordRow(t *testing.T) {
	rec := types.CandidateRecord{Fields: map[string]interface{}{
		"name":   "Jane",
		"skills": []interface{}{"Go"},
		"experience": []interface{}{
			map[string]interface{}{"company": "Acme", "dates": "2020-2024", "position": "SRE"},
		},
	}}
	row, err := RecordRow(rec)
	require.NoError(t, err)
	assert.Equal(t, "Jane", row.Name)
	assert.Equal(t, "Go", row.Skills)
	assert.Equal(t, `[{"company":"Acme","dates":"2020-2024","position":"SRE"}]`, row.Experience)

	empty, err := RecordRow(types.CandidateRecord{})
	require.NoError(t, err)
	assert.Equal(t, types.TableRow{}, empty)
}

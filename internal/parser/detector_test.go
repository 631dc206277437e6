package parser

import (
	"context"
	"errors"
	"testing"

	"resume-parser-go/internal/agent"
	"resume-parser-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectorDetect(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		want       types.DetectionResult
		wantParsed bool
	}{
		{
			name:       "单份简历",
			response:   `{"multiple_resumes": false, "resume_count": 1}`,
			want:       types.DetectionResult{MultipleResumes: false, ResumeCount: 1},
			wantParsed: true,
		},
		{
			name:       "多份简历",
			response:   `{"multiple_resumes": true, "resume_count": 3}`,
			want:       types.DetectionResult{MultipleResumes: true, ResumeCount: 3},
			wantParsed: true,
		},
		{
			name:       "代码块包裹",
			response:   "```json\n{\"multiple_resumes\": true, \"resume_count\": 2}\n```",
			want:       types.DetectionResult{MultipleResumes: true, ResumeCount: 2},
			wantParsed: true,
		},
		{
			name:       "字符串形式的值",
			response:   `{"multiple_resumes": "true", "resume_count": "2"}`,
			want:       types.DetectionResult{MultipleResumes: true, ResumeCount: 2},
			wantParsed: true,
		},
		{
			name:       "计数为0归一为1",
			response:   `{"multiple_resumes": false, "resume_count": 0}`,
			want:       types.DetectionResult{MultipleResumes: false, ResumeCount: 1},
			wantParsed: true,
		},
		{
			name:       "非多份时计数固定为1",
			response:   `{"multiple_resumes": false, "resume_count": 4}`,
			want:       types.DetectionResult{MultipleResumes: false, ResumeCount: 1},
			wantParsed: true,
		},
		{
			name:       "多份但计数小于2按单份处理",
			response:   `{"multiple_resumes": true, "resume_count": 1}`,
			want:       types.DetectionResult{MultipleResumes: false, ResumeCount: 1},
			wantParsed: true,
		},
		{
			name:       "无法解析",
			response:   "I think there are two resumes here.",
			want:       types.DefaultDetection(),
			wantParsed: false,
		},
		{
			name:       "缺少关键字段",
			response:   `{"answer": "yes"}`,
			want:       types.DefaultDetection(),
			wantParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(agent.NewMockChatModel(tt.response))
			res, err := d.Detect(context.Background(), "resume text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.wantParsed, res.Parsed)
		})
	}
}

func TestDetectorTransportError(t *testing.T) {
	m := agent.NewMockChatModelSequential(agent.MockResponse{Error: errors.New("status 503")})
	d := NewDetector(m)

	res, err := d.Detect(context.Background(), "resume text")
	require.Error(t, err)
	assert.False(t, res.Parsed)
	assert.Equal(t, types.DefaultDetection(), res.Value)
}

func TestDetectorSendsTextAsUserMessage(t *testing.T) {
	m := agent.NewMockChatModel(`{"multiple_resumes": false, "resume_count": 1}`)
	d := NewDetector(m)

	_, err := d.Detect(context.Background(), "Jane Doe\njane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\njane@example.com", m.LastUserContent())
	require.Len(t, m.Received(), 1)
	assert.Contains(t, m.Received()[0][0].Content, "multiple_resumes")
}

package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-parser-go/internal/agent"
	"resume-parser-go/internal/aggregator"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranscriber 把PDF文件内容当作转写文本, 并写出 .md 产物
type fakeTranscriber struct {
	fail   map[string]error
	panics map[string]bool
	delay  func(path string) time.Duration
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filePath, outputDir string) (string, error) {
	base := filepath.Base(filePath)
	if f.panics[base] {
		panic("corrupted pdf")
	}
	if err := f.fail[base]; err != nil {
		return "", err
	}
	if f.delay != nil {
		select {
		case <-time.After(f.delay(filePath)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	text := string(data)
	if err := os.WriteFile(parser.ArtifactPath(filePath, outputDir), data, 0o644); err != nil {
		return "", err
	}
	return text, nil
}

// scriptedModel 按系统提示词区分阶段: 含 "John Smith" 的文本视为两份简历, 抽取时姓名取首行
func scriptedModel() *agent.MockChatModel {
	return agent.NewMockChatModelFunc(func(messages []*schema.Message) (string, error) {
		system, user := messages[0].Content, messages[len(messages)-1].Content
		switch {
		case strings.Contains(system, "document analyzer"):
			if strings.Contains(user, "John Smith") {
				return `{"multiple_resumes": true, "resume_count": 2}`, nil
			}
			return `{"multiple_resumes": false, "resume_count": 1}`, nil
		case strings.Contains(system, "document splitter"):
			return `{"markers": ["Jane Doe", "John Smith"]}`, nil
		default:
			first := strings.SplitN(strings.TrimSpace(user), "\n", 2)[0]
			if first == "GARBAGE" {
				return "not json at all", nil
			}
			return fmt.Sprintf(`{"name": %q, "email": null, "skills": ["Go"]}`, first), nil
		}
	})
}

func newTestProcessor(m *agent.MockChatModel, tr Transcriber, opts ...Option) *BatchProcessor {
	return NewBatchProcessor(tr,
		parser.NewDetector(m),
		parser.NewSplitter(m),
		parser.NewExtractor(m),
		opts...,
	)
}

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestListPDFs(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"b.pdf": "", "a.PDF": "", "notes.txt": "", "c.Pdf": "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	files, err := ListPDFs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "c.Pdf"),
	}, files)

	_, err = ListPDFs(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestProcessDirectoryEndToEnd(t *testing.T) {
	in := writeInputs(t, map[string]string{
		"single.pdf": "Alice Wong\nalice@example.com\n",
		"multi.pdf":  "Jane Doe\njane@example.com\n\nJohn Smith\njohn@example.com\n",
		"readme.txt": "ignored",
	})
	out := filepath.Join(t.TempDir(), "out")

	p := newTestProcessor(scriptedModel(), &fakeTranscriber{})
	result, err := p.ProcessDirectory(context.Background(), in, out)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Files, 2)

	byFile := result.ByFile()
	multi := byFile[filepath.Join(in, "multi.pdf")]
	require.Len(t, multi, 2)
	assert.Equal(t, "Jane Doe", multi[0].Name())
	assert.Equal(t, 1, multi[0].ResumeIndex)
	assert.Equal(t, "John Smith", multi[1].Name())
	assert.Equal(t, 2, multi[1].ResumeIndex)

	single := byFile[filepath.Join(in, "single.pdf")]
	require.Len(t, single, 1)
	assert.Equal(t, "Alice Wong", single[0].Name())
	assert.Equal(t, "", single[0].Email())

	assert.FileExists(t, filepath.Join(out, "multi.md"))
	assert.FileExists(t, filepath.Join(out, "single.md"))

	records, degraded, failed := result.Stats()
	assert.Equal(t, 3, records)
	assert.Equal(t, 0, degraded)
	assert.Equal(t, 0, failed)
}

func TestProcessDirectoryWritesEveryRecordToTable(t *testing.T) {
	in := writeInputs(t, map[string]string{
		"a.pdf": "Alice Chen\nGo developer\n",
		"b.pdf": "Jane Doe\njane@example.com\n\nJohn Smith\njohn@example.com\n",
	})
	// 第二份简历抽取返回非JSON, 记录降级为空
	m := agent.NewMockChatModelFunc(func(messages []*schema.Message) (string, error) {
		system, user := messages[0].Content, messages[len(messages)-1].Content
		switch {
		case strings.Contains(system, "document analyzer"):
			if strings.Contains(user, "John Smith") {
				return `{"multiple_resumes": true, "resume_count": 2}`, nil
			}
			return `{"multiple_resumes": false, "resume_count": 1}`, nil
		case strings.Contains(system, "document splitter"):
			return `{"markers": ["Jane Doe", "John Smith"]}`, nil
		default:
			first := strings.SplitN(strings.TrimSpace(user), "\n", 2)[0]
			if first == "John Smith" {
				return "sorry, I cannot help with that", nil
			}
			return fmt.Sprintf(`{"name": %q, "skills": ["Go"]}`, first), nil
		}
	})

	tablePath := filepath.Join(t.TempDir(), "candidates.csv")
	agg := aggregator.New(aggregator.NewCSVStore(tablePath), zerolog.Nop())
	p := newTestProcessor(m, &fakeTranscriber{}, WithRecordSink(agg), WithWorkers(1))

	result, err := p.ProcessDirectory(context.Background(), in, t.TempDir())
	require.NoError(t, err)

	table, err := aggregator.ReadTable(tablePath)
	require.NoError(t, err)
	require.Len(t, table, 4)
	assert.Equal(t, []string{"Alice Chen", "", "", "", "Go"}, table[1])
	assert.Equal(t, []string{"Jane Doe", "", "", "", "Go"}, table[2])
	assert.Equal(t, []string{"", "", "", "", ""}, table[3])

	byFile := result.ByFile()
	require.Len(t, byFile, 2)
	a := byFile[filepath.Join(in, "a.pdf")]
	require.Len(t, a, 1)
	assert.Equal(t, 1, a[0].ResumeIndex)

	b := byFile[filepath.Join(in, "b.pdf")]
	require.Len(t, b, 2)
	assert.Equal(t, 1, b[0].ResumeIndex)
	assert.Equal(t, 2, b[1].ResumeIndex)
	assert.False(t, b[0].Degraded)
	assert.True(t, b[1].Degraded)
	assert.True(t, b[1].IsEmpty())
}

func TestProcessDirectoryIsolatesFailures(t *testing.T) {
	in := writeInputs(t, map[string]string{
		"a_ok.pdf":      "Alice Wong\n",
		"b_broken.pdf":  "whatever",
		"c_panic.pdf":   "whatever",
		"d_garbage.pdf": "GARBAGE\n",
		"e_ok.pdf":      "Eve Adams\n",
	})
	tr := &fakeTranscriber{
		fail:   map[string]error{"b_broken.pdf": errors.New("encrypted pdf")},
		panics: map[string]bool{"c_panic.pdf": true},
	}

	p := newTestProcessor(scriptedModel(), tr)
	result, err := p.ProcessDirectory(context.Background(), in, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Files, 5)

	broken := result.Files[1]
	assert.True(t, broken.Failed())
	assert.Contains(t, broken.Error, "encrypted pdf")
	require.Len(t, broken.Records, 1)
	assert.True(t, broken.Records[0].IsEmpty())
	assert.Equal(t, 1, broken.Records[0].ResumeIndex)

	panicked := result.Files[2]
	assert.True(t, panicked.Failed())
	assert.Contains(t, panicked.Error, "corrupted pdf")
	require.Len(t, panicked.Records, 1)
	assert.True(t, panicked.Records[0].IsEmpty())

	garbage := result.Files[3]
	assert.False(t, garbage.Failed())
	require.Len(t, garbage.Records, 1)
	assert.True(t, garbage.Records[0].Degraded)
	assert.True(t, garbage.Records[0].IsEmpty())

	assert.Equal(t, "Alice Wong", result.Files[0].Records[0].Name())
	assert.Equal(t, "Eve Adams", result.Files[4].Records[0].Name())
}

func TestProcessFileDetectorTransportError(t *testing.T) {
	in := writeInputs(t, map[string]string{"a.pdf": "Alice\n"})
	m := agent.NewMockChatModelSequential(agent.MockResponse{Error: errors.New("status 503")})

	p := newTestProcessor(m, &fakeTranscriber{})
	fr := p.ProcessFile(context.Background(), filepath.Join(in, "a.pdf"), t.TempDir())
	assert.True(t, fr.Failed())
	assert.Contains(t, fr.Error, StageDetect)
	require.Len(t, fr.Records, 1)
	assert.True(t, fr.Records[0].IsEmpty())
}

func TestProcessDirectoryWorkerPoolPreservesOrder(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 8; i++ {
		files[fmt.Sprintf("resume_%02d.pdf", i)] = fmt.Sprintf("Candidate %02d\n", i)
	}
	in := writeInputs(t, files)
	tr := &fakeTranscriber{delay: func(path string) time.Duration {
		// 靠前的文件更慢, 保证完成顺序与列举顺序不同
		var n int
		fmt.Sscanf(filepath.Base(path), "resume_%02d.pdf", &n)
		return time.Duration(8-n) * 5 * time.Millisecond
	}}
	progress := &recordingProgress{}

	p := newTestProcessor(scriptedModel(), tr, WithWorkers(4), WithProgressReporter(progress))
	result, err := p.ProcessDirectory(context.Background(), in, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Files, 8)
	for i, fr := range result.Files {
		assert.Equal(t, filepath.Join(in, fmt.Sprintf("resume_%02d.pdf", i)), fr.SourceFile)
		assert.Equal(t, fmt.Sprintf("Candidate %02d", i), fr.Records[0].Name())
	}
	assert.Equal(t, 8, progress.total)
	assert.Len(t, progress.done, 8)
	assert.True(t, progress.finished)
}

func TestProcessDirectoryCancelled(t *testing.T) {
	in := writeInputs(t, map[string]string{"a.pdf": "A\n", "b.pdf": "B\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	p := newTestProcessor(scriptedModel(), &fakeTranscriber{}, WithRecordSink(sink))
	result, err := p.ProcessDirectory(ctx, in, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	for _, fr := range result.Files {
		assert.True(t, fr.Failed())
		assert.Contains(t, fr.Error, context.Canceled.Error())
		require.Len(t, fr.Records, 1)
	}
	assert.Empty(t, sink.batches)
}

func TestProcessDirectoryUnreadableInput(t *testing.T) {
	p := newTestProcessor(scriptedModel(), &fakeTranscriber{})
	_, err := p.ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}

func TestProcessDirectoryEmpty(t *testing.T) {
	p := newTestProcessor(scriptedModel(), &fakeTranscriber{})
	result, err := p.ProcessDirectory(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}

func TestProcessDirectoryDownstreamComponents(t *testing.T) {
	in := writeInputs(t, map[string]string{
		"a.pdf": "Alice Wong\n",
		"b.pdf": "Jane Doe\n\nJohn Smith\n",
	})
	sink := &recordingSink{}
	pub := &recordingPublisher{}
	arch := &recordingArchiver{}

	p := newTestProcessor(scriptedModel(), &fakeTranscriber{},
		WithWorkers(2),
		WithRecordSink(sink),
		WithEventPublisher(pub),
		WithArtifactArchiver(arch),
	)
	result, err := p.ProcessDirectory(context.Background(), in, t.TempDir())
	require.NoError(t, err)

	assert.Len(t, sink.batches, 2)
	assert.Equal(t, 3, sink.total())

	require.Len(t, pub.files, 2)
	for _, evt := range pub.files {
		assert.Equal(t, result.RunID, evt.RunID)
		assert.NotEmpty(t, evt.EventID)
	}
	require.Len(t, pub.batches, 1)
	assert.Equal(t, 2, pub.batches[0].FileCount)
	assert.Equal(t, 3, pub.batches[0].RecordCount)

	assert.ElementsMatch(t, []string{result.RunID, result.RunID}, arch.runIDs)
	assert.Len(t, arch.paths, 2)
}

func TestDownstreamFailuresDoNotFailFiles(t *testing.T) {
	in := writeInputs(t, map[string]string{"a.pdf": "Alice Wong\n"})
	p := newTestProcessor(scriptedModel(), &fakeTranscriber{},
		WithRecordSink(&recordingSink{err: errors.New("disk full")}),
		WithEventPublisher(&recordingPublisher{err: errors.New("broker down")}),
		WithArtifactArchiver(&recordingArchiver{err: errors.New("bucket missing")}),
	)
	result, err := p.ProcessDirectory(context.Background(), in, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.False(t, result.Files[0].Failed())
}

func TestWithWorkersClamps(t *testing.T) {
	p := newTestProcessor(scriptedModel(), &fakeTranscriber{}, WithWorkers(0))
	assert.Equal(t, 1, p.workers)
	p = newTestProcessor(scriptedModel(), &fakeTranscriber{}, WithWorkers(100))
	assert.Equal(t, maxWorkers, p.workers)
}

func TestFileProcessError(t *testing.T) {
	inner := errors.New("boom")
	err := newFileError("a.pdf", StageTranscribe, inner)

	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, ErrDetectionFailed)

	var fpe *FileProcessError
	require.ErrorAs(t, err, &fpe)
	assert.Equal(t, "a.pdf", fpe.SourceFile)
	assert.Contains(t, err.Error(), "transcribe")

	assert.ErrorIs(t, newFileError("a.pdf", StageDetect, inner), ErrDetectionFailed)
}

// ----- 测试替身 -----

type recordingProgress struct {
	total    int
	done     []string
	finished bool
}

func (r *recordingProgress) Start(total int)                          { r.total = total }
func (r *recordingProgress) FileDone(path string, _ types.FileResult) { r.done = append(r.done, path) }
func (r *recordingProgress) Finish()                                  { r.finished = true }

type recordingSink struct {
	mu      sync.Mutex
	batches [][]types.CandidateRecord
	err     error
}

func (s *recordingSink) AppendRecords(_ context.Context, records []types.CandidateRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.batches = append(s.batches, records)
	return len(records), nil
}

func (s *recordingSink) total() int {
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type recordingPublisher struct {
	mu      sync.Mutex
	files   []types.FileProcessedEvent
	batches []types.BatchCompletedEvent
	err     error
}

func (p *recordingPublisher) PublishFileProcessed(_ context.Context, evt types.FileProcessedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, evt)
	return p.err
}

func (p *recordingPublisher) PublishBatchCompleted(_ context.Context, evt types.BatchCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, evt)
	return p.err
}

type recordingArchiver struct {
	mu     sync.Mutex
	runIDs []string
	paths  []string
	err    error
}

func (a *recordingArchiver) ArchiveFile(_ context.Context, runID, localPath string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runIDs = append(a.runIDs, runID)
	a.paths = append(a.paths, localPath)
	if a.err != nil {
		return "", a.err
	}
	return "runs/" + runID + "/" + filepath.Base(localPath), nil
}

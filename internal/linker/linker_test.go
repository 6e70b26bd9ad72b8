// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linker

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/link-engine/internal/httputil"
	"github.com/pdiddy/link-engine/pkg/types"
)

// noSleep satisfies httputil.Sleeper without waiting.
var noSleep = httputil.SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

// fakeService answers each submission with the jobs produced by respond,
// one per Fetch call.
type fakeService struct {
	mu        sync.Mutex
	texts     []string
	titles    []string
	fetches   int
	respond   func(n int, text string) []Job
	submitErr error
	jobs      map[string][]Job
}

func (f *fakeService) Submit(_ context.Context, text, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.texts = append(f.texts, text)
	f.titles = append(f.titles, title)
	n := len(f.texts)
	id := fmt.Sprintf("task-%d", n)
	if f.jobs == nil {
		f.jobs = make(map[string][]Job)
	}
	f.jobs[id] = f.respond(n, text)
	return id, nil
}

func (f *fakeService) Fetch(_ context.Context, taskID string) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	queue := f.jobs[taskID]
	if len(queue) == 0 {
		return Job{}, fmt.Errorf("unknown task %s", taskID)
	}
	j := queue[0]
	if len(queue) > 1 {
		f.jobs[taskID] = queue[1:]
	}
	return j, nil
}

func readyJob(results ...Result) Job {
	return Job{State: "SUCCESS", Ready: true, Results: results, RefData: map[string]RefData{
		"Genesis 1:1": {HeRef: "בראשית א:א"},
	}}
}

func nLines(n int, width int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = strings.Repeat("x", width-1) + "\n"
	}
	return lines
}

func testLinker(svc Service) *Linker {
	return &Linker{
		Service:   svc,
		ChunkSize: 100,
		Policy:    httputil.Policy{InitialDelay: time.Second, Interval: time.Second, MaxAttempts: 3},
		Sleeper:   noSleep,
	}
}

func TestLinkLines_TwoChunksMapToAbsoluteLines(t *testing.T) {
	lines := nLines(200, 10)
	// Chunk 2 starts with lines of 80, 75, and 75 characters.
	lines[100] = strings.Repeat("a", 79) + "\n"
	lines[101] = strings.Repeat("b", 74) + "\n"
	lines[102] = strings.Repeat("c", 74) + "\n"

	svc := &fakeService{respond: func(n int, _ string) []Job {
		if n == 1 {
			return []Job{readyJob(Result{Refs: []string{"Genesis 1:1"}, StartChar: 12, EndChar: 15})}
		}
		return []Job{readyJob(
			Result{Refs: []string{"Genesis 1:1"}, StartChar: 160, EndChar: 170},
			Result{Refs: []string{"Genesis 1:1"}, StartChar: 150, EndChar: 152},
			Result{Refs: nil, StartChar: 0, EndChar: 3},
		)}
	}}

	got, err := testLinker(svc).LinkLines(context.Background(), lines, "Book")
	require.NoError(t, err)

	assert.Len(t, svc.texts, 2)
	assert.Equal(t, []string{"Book", "Book"}, svc.titles)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, types.LinkerEntry{Start: 2, End: 5, Refs: map[string]string{"Genesis 1:1": "בראשית א:א"}}, got[0].Entry)

	assert.Equal(t, 103, got[1].Line)
	assert.Equal(t, 5, got[1].Entry.Start)
	assert.Equal(t, 15, got[1].Entry.End)

	assert.Equal(t, 102, got[2].Line)
	assert.Equal(t, 70, got[2].Entry.Start)
}

func TestLinkLines_SubmitsChunksInOrder(t *testing.T) {
	lines := make([]string, 250)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d\n", i+1)
	}
	svc := &fakeService{respond: func(int, string) []Job { return []Job{readyJob()} }}

	_, err := testLinker(svc).LinkLines(context.Background(), lines, "Book")
	require.NoError(t, err)
	require.Len(t, svc.texts, 3)
	assert.True(t, strings.HasPrefix(svc.texts[0], "line 1\n"))
	assert.True(t, strings.HasPrefix(svc.texts[1], "line 101\n"))
	assert.True(t, strings.HasPrefix(svc.texts[2], "line 201\n"))
	assert.True(t, strings.HasSuffix(svc.texts[2], "line 250\n"))
}

func TestLinkLines_WaitsForPendingJob(t *testing.T) {
	svc := &fakeService{respond: func(int, string) []Job {
		return []Job{
			{State: "PENDING", Ready: false},
			{State: "STARTED", Ready: false},
			readyJob(Result{Refs: []string{"Genesis 1:1"}, StartChar: 0, EndChar: 4}),
		}
	}}

	got, err := testLinker(svc).LinkLines(context.Background(), []string{"text\n"}, "Book")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 3, svc.fetches)
}

func TestLinkLines_FailureStateIsTerminal(t *testing.T) {
	svc := &fakeService{respond: func(int, string) []Job {
		return []Job{{State: "FAILURE"}}
	}}

	_, err := testLinker(svc).LinkLines(context.Background(), []string{"text\n"}, "Book")
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.Equal(t, 1, svc.fetches)
}

func TestLinkLines_RetryBudgetExhausted(t *testing.T) {
	svc := &fakeService{respond: func(int, string) []Job {
		return []Job{{State: "PENDING"}}
	}}

	lines := nLines(150, 5)
	_, err := testLinker(svc).LinkLines(context.Background(), lines, "Book")
	assert.ErrorIs(t, err, httputil.ErrPollExhausted)
	assert.Equal(t, 3, svc.fetches)
	// The second chunk is never submitted.
	assert.Len(t, svc.texts, 1)
}

func TestLinkLines_SubmitError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := &fakeService{submitErr: boom}
	_, err := testLinker(svc).LinkLines(context.Background(), []string{"a\n"}, "Book")
	assert.ErrorIs(t, err, boom)
}

func TestLinkLines_Empty(t *testing.T) {
	svc := &fakeService{respond: func(int, string) []Job { return []Job{readyJob()} }}
	got, err := testLinker(svc).LinkLines(context.Background(), nil, "Book")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, svc.texts)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a\n", "b\n", "c"}, SplitLines("a\r\nb\nc"))
	assert.Equal(t, []string{"a\n"}, SplitLines("a\n"))
	assert.Empty(t, SplitLines(""))
}

func TestLinkBook_AndArtifactFile(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.txt")
	require.NoError(t, os.WriteFile(book, []byte("first line\nsecond Genesis 1:1\n"), 0o644))

	svc := &fakeService{respond: func(int, string) []Job {
		return []Job{readyJob(Result{Refs: []string{"Genesis 1:1"}, StartChar: 18, EndChar: 29})}
	}}

	artifact, err := testLinker(svc).LinkBook(context.Background(), book, "Title")
	require.NoError(t, err)
	require.Contains(t, artifact, 2)
	assert.Equal(t, 7, artifact[2][0].Start)
	assert.Equal(t, 18, artifact[2][0].End)

	path := filepath.Join(dir, "links", "book_links.json")
	require.NoError(t, WriteArtifact(path, artifact))
	back, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact, back)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"2": [`)

	_, err = testLinker(svc).LinkBook(context.Background(), filepath.Join(dir, "missing.txt"), "x")
	assert.Error(t, err)
}

func TestNew_FromConfig(t *testing.T) {
	cfg := types.Defaults().Service
	l := New(&fakeService{}, cfg, noSleep)
	assert.Equal(t, 100, l.ChunkSize)
	assert.Equal(t, 5, l.Policy.MaxAttempts)
	assert.Equal(t, 5*time.Second, l.Policy.InitialDelay)
	assert.Equal(t, 50*time.Second, l.Policy.Interval)

	l.ChunkSize = 0
	assert.Equal(t, defaultChunkSize, l.chunkSize())
}

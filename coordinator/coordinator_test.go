package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gurre/awsop/adapter"
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/checkpoint"
	"github.com/gurre/awsop/config"
	"github.com/gurre/awsop/manifest"
	"github.com/gurre/awsop/metrics"
	"github.com/gurre/awsop/record"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/writer"
)

var translateText = &schema.Operation{
	Service:       "translate",
	Name:          "TranslateText",
	DefaultSelect: "TranslatedText",
}

// mockStreamer serves in-memory sources keyed by bucket/key. Offsets are the
// byte position at which each line starts, as in a newline-delimited file.
type mockStreamer struct {
	mu      sync.Mutex
	sources map[string][]string
	offsets []int64 // Offset argument of every Stream call

	failOnce  bool // Fail the first call after failAfter lines
	failAfter int
}

func (m *mockStreamer) Stream(ctx context.Context, bucket, key string, offset int64, fn func([]byte, int64) error) error {
	if bucket != "" {
		key = bucket + "/" + key
	}
	m.mu.Lock()
	lines := m.sources[key]
	m.offsets = append(m.offsets, offset)
	fail := m.failOnce
	m.failOnce = false
	m.mu.Unlock()

	var pos int64
	delivered := 0
	for _, line := range lines {
		start := pos
		pos += int64(len(line)) + 1
		if start < offset {
			continue
		}
		if fail && delivered == m.failAfter {
			return errors.New("connection reset")
		}
		if err := fn([]byte(line), start); err != nil {
			return err
		}
		delivered++
	}
	return nil
}

// mockRunner echoes the Text input and fails for "boom".
type mockRunner struct {
	mu    sync.Mutex
	calls []map[string]any
}

func (m *mockRunner) Run(ctx context.Context, op *schema.Operation, raw map[string]any) (*adapter.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, raw)
	n := len(m.calls)
	m.mu.Unlock()
	if raw["Text"] == "boom" {
		return nil, errors.New("ValidationException: bad text")
	}
	return &adapter.Result{
		InvocationID: fmt.Sprintf("inv-%d", n),
		Operation:    op,
		Values:       []any{strings.ToUpper(fmt.Sprint(raw["Text"]))},
		Pages:        1,
	}, nil
}

type mockWriter struct {
	mu       sync.Mutex
	pending  []writer.Result
	flushed  []writer.Result
	batches  int
	writeErr error
}

func (m *mockWriter) WriteBatch(ctx context.Context, results []writer.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.batches++
	m.pending = append(m.pending, results...)
	return nil
}

func (m *mockWriter) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = append(m.flushed, m.pending...)
	m.pending = nil
	return nil
}

func (m *mockWriter) Close(ctx context.Context) error {
	return m.Flush(ctx)
}

func (m *mockWriter) results() []writer.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]writer.Result(nil), m.flushed...)
}

// orderedStore checks that every saved offset is covered by flushed results.
type orderedStore struct {
	*checkpoint.MemoryStore
	w     *mockWriter
	saves int
	err   error
}

func (s *orderedStore) Save(ctx context.Context, state checkpoint.State) error {
	covered := false
	for _, r := range s.w.results() {
		if SourceKey(translateText, r.Source) == state.Key && r.Offset == state.Offset {
			covered = true
		}
	}
	if !covered {
		s.err = fmt.Errorf("checkpoint %s@%d saved before its result was flushed", state.Key, state.Offset)
	}
	s.saves++
	return s.MemoryStore.Save(ctx, state)
}

type mockUploader struct {
	uri    string
	report metrics.Report
}

func (m *mockUploader) UploadReport(ctx context.Context, uri string, report metrics.Report) error {
	m.uri = uri
	m.report = report
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxWorkers = 2
	cfg.BatchSize = 2
	cfg.CheckpointInterval = 2
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func newTestCoordinator(cfg *config.Config, runner Runner, s Streamer, w writer.Writer, store checkpoint.Store, up ReportUploader) *Coordinator {
	c := NewCoordinator(cfg, runner, s, record.NewJSONDecoder(), w, store, nil, nil, up)
	c.SetOutput(io.Discard)
	c.SetFileStreamer(s)
	return c
}

func TestMain(m *testing.M) {
	retryDelay = func(int) time.Duration { return time.Millisecond }
	os.Exit(m.Run())
}

func TestCoordinatorHappyPath(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{
		"in/a.jsonl": {`{"Text":"hello"}`, ``, `{"Text":"world","TargetLanguageCode":"sv"}`},
		"/b.jsonl":   {`{"Text":"boom"}`, `not json`, `{"Text":"again"}`},
	}}
	runner := &mockRunner{}
	w := &mockWriter{}
	store := checkpoint.NewMemoryStore()
	up := &mockUploader{}

	cfg := testConfig()
	cfg.ReportS3URI = "s3://reports/run.json"
	coord := newTestCoordinator(cfg, runner, streamer, w, store, up)

	job := manifest.Job{
		Service:   "translate",
		Operation: "TranslateText",
		Defaults:  map[string]any{"SourceLanguageCode": "en", "TargetLanguageCode": "de"},
		Sources:   []manifest.Source{{URI: "s3://in/a.jsonl"}, {URI: "/b.jsonl"}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report, err := coord.Run(ctx, translateText, job)
	if err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}

	results := w.results()
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	bySourceOffset := map[string]writer.Result{}
	for _, r := range results {
		bySourceOffset[r.ID()] = r
	}

	if got := bySourceOffset["s3://in/a.jsonl#0"].Output; got != "HELLO" {
		t.Errorf("expected HELLO, got %v", got)
	}
	if r := bySourceOffset["/b.jsonl#0"]; r.Error == "" || r.Output != nil {
		t.Errorf("expected failed invocation result, got %+v", r)
	}
	if r := bySourceOffset["/b.jsonl#16"]; !strings.Contains(r.Error, "corrupt") {
		t.Errorf("expected corrupt record result, got %+v", r)
	}

	// Record values override defaults; defaults fill the rest.
	for _, call := range runner.calls {
		if call["SourceLanguageCode"] != "en" {
			t.Errorf("expected default source language, got %v", call)
		}
		if call["Text"] == "world" && call["TargetLanguageCode"] != "sv" {
			t.Errorf("expected record to override default, got %v", call)
		}
	}

	if report.Records != 5 || report.Corrupt != 1 || report.Errors != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	for _, key := range []string{"s3://in/a.jsonl", "/b.jsonl"} {
		state, _ := store.Load(ctx, SourceKey(translateText, key))
		if !state.Done {
			t.Errorf("expected %s to be marked done, got %+v", key, state)
		}
	}

	if up.uri != "s3://reports/run.json" || up.report.Records != 5 {
		t.Errorf("expected report upload, got %s %+v", up.uri, up.report)
	}
}

func TestCoordinatorCheckpointsAfterFlush(t *testing.T) {
	lines := make([]string, 7)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"Text":"line %d"}`, i)
	}
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": lines}}
	w := &mockWriter{}
	store := &orderedStore{MemoryStore: checkpoint.NewMemoryStore(), w: w}

	cfg := testConfig()
	cfg.MaxWorkers = 1
	cfg.BatchSize = 3
	cfg.CheckpointInterval = 2
	coord := newTestCoordinator(cfg, &mockRunner{}, streamer, w, store, nil)

	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	if _, err := coord.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}

	if store.err != nil {
		t.Error(store.err)
	}
	// Three interval checkpoints and the completion checkpoint.
	if store.saves != 4 {
		t.Errorf("expected 4 checkpoint saves, got %d", store.saves)
	}
	if got := len(w.results()); got != 7 {
		t.Errorf("expected 7 results, got %d", got)
	}
}

func TestCoordinatorResumesFromCheckpoint(t *testing.T) {
	lines := []string{`{"Text":"one"}`, `{"Text":"two"}`, `{"Text":"three"}`}
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": lines}}
	runner := &mockRunner{}
	w := &mockWriter{}
	store := checkpoint.NewMemoryStore()

	second := int64(len(lines[0]) + 1)
	if err := store.Save(context.Background(), checkpoint.State{
		Key:       SourceKey(translateText, "/in.jsonl"),
		Offset:    second,
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	coord := newTestCoordinator(testConfig(), runner, streamer, w, store, nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	if _, err := coord.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}

	if len(runner.calls) != 1 || runner.calls[0]["Text"] != "three" {
		t.Errorf("expected only the third record to be invoked, got %v", runner.calls)
	}
	if len(streamer.offsets) != 1 || streamer.offsets[0] != second {
		t.Errorf("expected stream to start at %d, got %v", second, streamer.offsets)
	}
}

func TestCoordinatorSkipsCompletedSources(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": {`{"Text":"one"}`}}}
	runner := &mockRunner{}
	store := checkpoint.NewMemoryStore()
	_ = store.Save(context.Background(), checkpoint.State{
		Key:       SourceKey(translateText, "/in.jsonl"),
		Done:      true,
		UpdatedAt: time.Now(),
	})

	coord := newTestCoordinator(testConfig(), runner, streamer, &mockWriter{}, store, nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	if _, err := coord.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}
	if len(runner.calls) != 0 || len(streamer.offsets) != 0 {
		t.Errorf("expected completed source to be skipped, got %d calls", len(runner.calls))
	}
}

func TestCoordinatorRetriesStreamFromLastRecord(t *testing.T) {
	lines := []string{`{"Text":"one"}`, `{"Text":"two"}`, `{"Text":"three"}`}
	streamer := &mockStreamer{
		sources:   map[string][]string{"in/data.jsonl": lines},
		failOnce:  true,
		failAfter: 2,
	}
	runner := &mockRunner{}
	w := &mockWriter{}

	cfg := testConfig()
	cfg.MaxWorkers = 1
	coord := newTestCoordinator(cfg, runner, streamer, w, checkpoint.NewMemoryStore(), nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "s3://in/data.jsonl"}}}
	report, err := coord.Run(context.Background(), translateText, job)
	if err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}

	if len(runner.calls) != 3 {
		t.Errorf("expected each record invoked once, got %d calls", len(runner.calls))
	}
	if got := len(w.results()); got != 3 {
		t.Errorf("expected 3 results, got %d", got)
	}
	if len(streamer.offsets) != 2 || streamer.offsets[1] != int64(len(lines[0])+1) {
		t.Errorf("expected retry from the last processed record, got %v", streamer.offsets)
	}
	if report.Errors != 1 {
		t.Errorf("expected the stream failure to be counted, got %d", report.Errors)
	}
}

func TestCoordinatorWriteFailureFailsRun(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": {`{"Text":"a"}`, `{"Text":"b"}`}}}
	w := &mockWriter{writeErr: errors.New("disk full")}
	store := checkpoint.NewMemoryStore()

	coord := newTestCoordinator(testConfig(), &mockRunner{}, streamer, w, store, nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	_, err := coord.Run(context.Background(), translateText, job)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write failure, got %v", err)
	}

	state, _ := store.Load(context.Background(), SourceKey(translateText, "/in.jsonl"))
	if state.Done || !state.UpdatedAt.IsZero() {
		t.Errorf("expected no checkpoint after failed write, got %+v", state)
	}
}

func TestCoordinatorS3SourceWithoutStreamer(t *testing.T) {
	cfg := testConfig()
	coord := NewCoordinator(cfg, &mockRunner{}, nil, record.NewJSONDecoder(), &mockWriter{}, checkpoint.NewMemoryStore(), nil, nil, nil)
	coord.SetOutput(io.Discard)

	job := manifest.Job{Sources: []manifest.Source{{URI: "s3://bucket/key.jsonl"}}}
	if _, err := coord.Run(context.Background(), translateText, job); err == nil {
		t.Error("expected error for S3 source without S3 streamer")
	}
}

func TestCoordinatorCancelled(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": {`{"Text":"a"}`}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := newTestCoordinator(testConfig(), &mockRunner{}, streamer, &mockWriter{}, checkpoint.NewMemoryStore(), nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	if _, err := coord.Run(ctx, translateText, job); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCoordinatorDryRunOutputsRequest(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": {`{"Text":"a"}`}}}
	w := &mockWriter{}
	runner := runnerFunc(func(ctx context.Context, op *schema.Operation, raw map[string]any) (*adapter.Result, error) {
		return &adapter.Result{Request: []byte(`{"Text":"a"}`), DryRun: true}, nil
	})

	cfg := testConfig()
	cfg.DryRun = true
	coord := newTestCoordinator(cfg, runner, streamer, w, checkpoint.NewMemoryStore(), nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	if _, err := coord.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("coordinator failed: %v", err)
	}

	results := w.results()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := fmt.Sprintf("%s", results[0].Output); got != `{"Text":"a"}` {
		t.Errorf("expected request as output, got %s", got)
	}
}

func TestCoordinatorDryRunLeavesCheckpointsUntouched(t *testing.T) {
	lines := []string{`{"Text":"one"}`, `{"Text":"two"}`, `{"Text":"three"}`}
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": lines}}
	store := checkpoint.NewMemoryStore()
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}

	cfg := testConfig()
	cfg.DryRun = true
	dry := newTestCoordinator(cfg, &mockRunner{}, streamer, &mockWriter{}, store, nil)
	if _, err := dry.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	state, _ := store.Load(context.Background(), SourceKey(translateText, "/in.jsonl"))
	if !state.UpdatedAt.IsZero() || state.Done {
		t.Fatalf("expected dry run to save no checkpoint, got %+v", state)
	}

	runner := &mockRunner{}
	live := newTestCoordinator(testConfig(), runner, streamer, &mockWriter{}, store, nil)
	if _, err := live.Run(context.Background(), translateText, job); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(runner.calls) != len(lines) {
		t.Errorf("expected every record invoked after a dry run, got %d calls", len(runner.calls))
	}
}

func TestCoordinatorCheckpointsPerOperation(t *testing.T) {
	streamer := &mockStreamer{sources: map[string][]string{"/in.jsonl": {`{"Text":"one"}`, `{"Text":"two"}`}}}
	store := checkpoint.NewMemoryStore()
	job := manifest.Job{Sources: []manifest.Source{{URI: "/in.jsonl"}}}
	detect := &schema.Operation{Service: "comprehend", Name: "DetectDominantLanguage"}

	for _, op := range []*schema.Operation{translateText, detect} {
		runner := &mockRunner{}
		coord := newTestCoordinator(testConfig(), runner, streamer, &mockWriter{}, store, nil)
		if _, err := coord.Run(context.Background(), op, job); err != nil {
			t.Fatalf("%s failed: %v", op.Name, err)
		}
		if len(runner.calls) != 2 {
			t.Errorf("%s: expected 2 calls, got %d", op.Name, len(runner.calls))
		}
		state, _ := store.Load(context.Background(), SourceKey(op, "/in.jsonl"))
		if !state.Done {
			t.Errorf("%s: expected source to be marked done, got %+v", op.Name, state)
		}
	}
}

func TestCoordinatorDoesNotRetryStandardInput(t *testing.T) {
	lines := []string{`{"Text":"one"}`, `{"Text":"two"}`, `{"Text":"three"}`}
	streamer := &mockStreamer{
		sources:   map[string][]string{"-": lines},
		failOnce:  true,
		failAfter: 1,
	}
	runner := &mockRunner{}

	cfg := testConfig()
	cfg.MaxWorkers = 1
	coord := newTestCoordinator(cfg, runner, streamer, &mockWriter{}, checkpoint.NewMemoryStore(), nil)
	job := manifest.Job{Sources: []manifest.Source{{URI: "-"}}}
	_, err := coord.Run(context.Background(), translateText, job)
	if err == nil || !strings.Contains(err.Error(), "standard input") {
		t.Fatalf("expected standard input failure, got %v", err)
	}
	if len(streamer.offsets) != 1 {
		t.Errorf("expected a single read of standard input, got %v", streamer.offsets)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected 1 call before the failure, got %d", len(runner.calls))
	}
}

type runnerFunc func(ctx context.Context, op *schema.Operation, raw map[string]any) (*adapter.Result, error)

func (f runnerFunc) Run(ctx context.Context, op *schema.Operation, raw map[string]any) (*adapter.Result, error) {
	return f(ctx, op, raw)
}

func TestFileStreamer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := "{\"a\":1}\r\n\n{\"b\":2}\n{\"c\":3}"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	type line struct {
		text   string
		offset int64
	}
	collect := func(t *testing.T, s Streamer, key string, offset int64) []line {
		t.Helper()
		var got []line
		err := s.Stream(context.Background(), "", key, offset, func(b []byte, off int64) error {
			got = append(got, line{string(b), off})
			return nil
		})
		if err != nil {
			t.Fatalf("Stream() error: %v", err)
		}
		return got
	}

	all := collect(t, &FileStreamer{}, "file://"+path, 0)
	want := []line{{`{"a":1}`, 0}, {``, 9}, {`{"b":2}`, 10}, {`{"c":3}`, 18}}
	if fmt.Sprint(all) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", all, want)
	}

	fromOffset := collect(t, &FileStreamer{}, path, 10)
	if fmt.Sprint(fromOffset) != fmt.Sprint(want[2:]) {
		t.Errorf("got %v, want %v", fromOffset, want[2:])
	}

	stdin := collect(t, &FileStreamer{Stdin: strings.NewReader(content)}, "-", 10)
	if fmt.Sprint(stdin) != fmt.Sprint(want[2:]) {
		t.Errorf("stdin: got %v, want %v", stdin, want[2:])
	}
}

func TestFileStreamerErrors(t *testing.T) {
	s := &FileStreamer{}
	noop := func([]byte, int64) error { return nil }
	if err := s.Stream(context.Background(), "", filepath.Join(t.TempDir(), "missing"), 0, noop); err == nil {
		t.Error("expected error for missing file")
	}

	stop := errors.New("stop")
	s = &FileStreamer{Stdin: strings.NewReader("a\nb\n")}
	err := s.Stream(context.Background(), "", "-", 0, func([]byte, int64) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

type putRecorder struct {
	aws.S3Client
	bucket, key string
	body        []byte
}

func (p *putRecorder) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.bucket, p.key = *params.Bucket, *params.Key
	p.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ReportUploader(t *testing.T) {
	client := &putRecorder{}
	up := NewS3ReportUploader(client)

	m := metrics.NewMetrics()
	m.RecordProcessed()
	m.RecordProcessed()
	if err := up.UploadReport(context.Background(), "s3://reports/runs/1.json", m.GenerateReport()); err != nil {
		t.Fatalf("UploadReport() error: %v", err)
	}
	if client.bucket != "reports" || client.key != "runs/1.json" {
		t.Errorf("uploaded to %s/%s", client.bucket, client.key)
	}
	if !strings.Contains(string(client.body), `"records": 2`) {
		t.Errorf("unexpected report body: %s", client.body)
	}

	if err := up.UploadReport(context.Background(), "/tmp/report.json", m.GenerateReport()); err == nil {
		t.Error("expected error for non-S3 URI")
	}
}

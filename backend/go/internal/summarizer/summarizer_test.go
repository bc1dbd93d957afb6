package summarizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeProvider scripts the provider side of a summarization: the upload
// result, a sequence of file states, and how many generate calls fail
// before one succeeds.
type fakeProvider struct {
	uploadState FileState
	stateSeq    []FileState
	failTimes   int
	text        string

	generateCalls int
	stateCalls    int
	closed        bool
}

func (f *fakeProvider) Upload(ctx context.Context, path, mimeType string) (*ProviderFile, error) {
	return &ProviderFile{Name: "files/fake", URI: "uri://fake", MIMEType: mimeType, State: f.uploadState}, nil
}

func (f *fakeProvider) FileState(ctx context.Context, name string) (*ProviderFile, error) {
	state := FileStateActive
	if f.stateCalls < len(f.stateSeq) {
		state = f.stateSeq[f.stateCalls]
	}
	f.stateCalls++
	return &ProviderFile{Name: name, URI: "uri://fake", State: state}, nil
}

func (f *fakeProvider) Generate(ctx context.Context, file *ProviderFile, prompt string) (string, error) {
	f.generateCalls++
	if f.generateCalls <= f.failTimes {
		return "", errors.New("transient provider error")
	}
	return f.text, nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func withFakeProvider(s *Summarizer, p *fakeProvider) *int {
	factoryCalls := new(int)
	s.newProvider = func(ctx context.Context, apiKey string) (MediaProvider, error) {
		*factoryCalls++
		return p, nil
	}
	return factoryCalls
}

func writeTempInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(path, []byte("some content"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestSummarizeFileSuccessRemovesInput(t *testing.T) {
	s := newTestSummarizer(t)
	provider := &fakeProvider{uploadState: FileStateActive, text: "a fine summary"}
	withFakeProvider(s, provider)

	path := writeTempInput(t, t.TempDir())

	text, err := s.SummarizeFile(context.Background(), path, "key")
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if text != "a fine summary" {
		t.Errorf("SummarizeFile() = %q, want %q", text, "a fine summary")
	}
	if provider.generateCalls != 1 {
		t.Errorf("generate calls = %d, want 1", provider.generateCalls)
	}
	if !provider.closed {
		t.Error("provider was not closed")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("input file was not removed after success")
	}
}

func TestSummarizeFileRetriesThenSucceeds(t *testing.T) {
	s := newTestSummarizer(t)
	provider := &fakeProvider{uploadState: FileStateActive, failTimes: 2, text: "late summary"}
	withFakeProvider(s, provider)

	text, err := s.SummarizeFile(context.Background(), writeTempInput(t, t.TempDir()), "key")
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if text != "late summary" {
		t.Errorf("SummarizeFile() = %q, want %q", text, "late summary")
	}
	if provider.generateCalls != 3 {
		t.Errorf("generate calls = %d, want 3", provider.generateCalls)
	}
}

func TestSummarizeFileRetriesExhausted(t *testing.T) {
	s := newTestSummarizer(t)
	provider := &fakeProvider{uploadState: FileStateActive, failTimes: maxGenerateAttempts + 1}
	withFakeProvider(s, provider)

	path := writeTempInput(t, t.TempDir())

	text, err := s.SummarizeFile(context.Background(), path, "key")
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if text != retryExhaustedMessage {
		t.Errorf("SummarizeFile() = %q, want %q", text, retryExhaustedMessage)
	}
	if provider.generateCalls != maxGenerateAttempts {
		t.Errorf("generate calls = %d, want %d", provider.generateCalls, maxGenerateAttempts)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("input file should be kept when no attempt succeeded")
	}
}

func TestSummarizeFileWaitsForProcessing(t *testing.T) {
	s := newTestSummarizer(t)
	provider := &fakeProvider{
		uploadState: FileStateProcessing,
		stateSeq:    []FileState{FileStateProcessing, FileStateActive},
		text:        "processed summary",
	}
	withFakeProvider(s, provider)

	text, err := s.SummarizeFile(context.Background(), writeTempInput(t, t.TempDir()), "key")
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if text != "processed summary" {
		t.Errorf("SummarizeFile() = %q, want %q", text, "processed summary")
	}
	if provider.stateCalls != 2 {
		t.Errorf("state polls = %d, want 2", provider.stateCalls)
	}
}

func TestSummarizeFileProviderFailedState(t *testing.T) {
	s := newTestSummarizer(t)
	provider := &fakeProvider{uploadState: FileStateFailed}
	withFakeProvider(s, provider)

	text, err := s.SummarizeFile(context.Background(), writeTempInput(t, t.TempDir()), "key")
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("SummarizeFile() error = %v, want ErrProviderFailed", err)
	}
	if text != "" {
		t.Errorf("SummarizeFile() = %q, want empty on provider failure", text)
	}
	if provider.generateCalls != 0 {
		t.Errorf("generate calls = %d, want 0 after failed state", provider.generateCalls)
	}
}

func TestSummarizeFileMissing(t *testing.T) {
	s := newTestSummarizer(t)
	factoryCalls := withFakeProvider(s, &fakeProvider{uploadState: FileStateActive})

	text, err := s.SummarizeFile(context.Background(), filepath.Join(t.TempDir(), "no-such-file"), "key")
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if !strings.HasPrefix(text, "File was not found for request ") {
		t.Errorf("SummarizeFile() = %q, want missing-file message", text)
	}
	if *factoryCalls != 0 {
		t.Errorf("provider factory calls = %d, want 0 for a missing file", *factoryCalls)
	}
}

func TestSummarizeYouTubeNoTranscript(t *testing.T) {
	s := newTestSummarizer(t)
	factoryCalls := withFakeProvider(s, &fakeProvider{uploadState: FileStateActive})
	// An unrecognized link never reaches the network or the provider.
	text, err := s.SummarizeYouTube(context.Background(), "https://example.com/clip", "key")
	if err != nil {
		t.Fatalf("SummarizeYouTube() error = %v", err)
	}
	if text != noTranscriptMessage {
		t.Errorf("SummarizeYouTube() = %q, want %q", text, noTranscriptMessage)
	}
	if *factoryCalls != 0 {
		t.Errorf("provider factory calls = %d, want 0 without a transcript", *factoryCalls)
	}
}

func TestSummarizeFileCancelledDuringBackoff(t *testing.T) {
	s := newTestSummarizer(t)
	s.backoff = time.Minute
	provider := &fakeProvider{uploadState: FileStateActive, failTimes: maxGenerateAttempts + 1}
	withFakeProvider(s, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SummarizeFile(ctx, writeTempInput(t, t.TempDir()), "key")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SummarizeFile() error = %v, want context.Canceled", err)
	}
}

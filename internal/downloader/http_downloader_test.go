package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tokgrab/tokgrab/internal/config"
	"github.com/tokgrab/tokgrab/internal/domain"
)

func testConfig() config.DownloadConfig {
	return config.DownloadConfig{
		ProbeTimeout:  5 * time.Second,
		HeaderTimeout: 5 * time.Second,
		BufferSize:    7, // tiny buffer so transfers exercise many chunks
	}
}

func testSession(mediaURL string) domain.SessionContext {
	return domain.SessionContext{
		MediaURL:     mediaURL,
		UserAgent:    "test-agent",
		CookieHeader: "sid=abc; tt_csrf=xyz",
		Referer:      "https://example.com/@alice/video/123",
	}
}

// recordingSink collects progress updates for assertions.
type recordingSink struct {
	chunks []int
	closed bool
}

func (r *recordingSink) Write(p []byte) (int, error) {
	r.chunks = append(r.chunks, len(p))
	return len(p), nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestNewHTTPDownloader(t *testing.T) {
	dl := NewHTTPDownloader(testConfig(), nil, nil)
	if dl == nil {
		t.Fatal("downloader should not be nil")
	}
	if dl.client == nil || dl.streamClient == nil {
		t.Error("clients should not be nil")
	}
	if dl.progress == nil {
		t.Error("nil progress factory should default to NopProgress")
	}
}

func TestHTTPDownloader_Download_KnownTotal(t *testing.T) {
	content := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q, want test-agent", ua)
		}
		if c := r.Header.Get("Cookie"); c != "sid=abc; tt_csrf=xyz" {
			t.Errorf("Cookie = %q, want replayed jar", c)
		}
		if ref := r.Header.Get("Referer"); ref != "https://example.com/@alice/video/123" {
			t.Errorf("Referer = %q, want page URL", ref)
		}

		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(content)
	}))
	defer server.Close()

	sink := &recordingSink{}
	dl := NewHTTPDownloader(testConfig(), func(total int64, desc string) ProgressSink {
		if total != int64(len(content)) {
			t.Errorf("progress total = %d, want %d", total, len(content))
		}
		return sink
	}, nil)

	dest := filepath.Join(t.TempDir(), "out.mp4")
	n, err := dl.Download(context.Background(), testSession(server.URL), dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("bytes = %d, want %d", n, len(content))
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content mismatch: got %q", string(data))
	}

	// Chunk sizes observed by the sink must sum to the total.
	var sum int
	for _, c := range sink.chunks {
		sum += c
	}
	if sum != len(content) {
		t.Errorf("progress chunk sum = %d, want %d", sum, len(content))
	}
	if !sink.closed {
		t.Error("progress sink should be closed")
	}
}

func TestHTTPDownloader_Download_UnknownTotal(t *testing.T) {
	content := strings.Repeat("chunked video payload ", 50)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			// Probe rejected; the transfer must still proceed.
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// Flush to force chunked encoding with no Content-Length.
		fl := w.(http.Flusher)
		for _, part := range strings.SplitAfter(content, " ") {
			io.WriteString(w, part)
			fl.Flush()
		}
	}))
	defer server.Close()

	var sawTotal int64 = 0
	dl := NewHTTPDownloader(testConfig(), func(total int64, desc string) ProgressSink {
		sawTotal = total
		return &recordingSink{}
	}, nil)

	dest := filepath.Join(t.TempDir(), "out.mp4")
	n, err := dl.Download(context.Background(), testSession(server.URL), dest)
	if err != nil {
		t.Fatalf("Download should succeed in unknown-total mode: %v", err)
	}
	if sawTotal != -1 {
		t.Errorf("progress total = %d, want -1 for unknown", sawTotal)
	}
	if n != int64(len(content)) {
		t.Errorf("bytes = %d, want %d", n, len(content))
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() != int64(len(content)) {
		t.Errorf("file size = %d, want %d", info.Size(), len(content))
	}
}

func TestHTTPDownloader_Download_TransferFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), nil, nil)
	dest := filepath.Join(t.TempDir(), "out.mp4")
	_, err := dl.Download(context.Background(), testSession(server.URL), dest)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Errorf("error = %v, want ErrTransferFailed", err)
	}

	// Destination must not be created when the response is rejected.
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("no file should be created for a rejected response")
	}
}

func TestHTTPDownloader_Download_WriteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("content"))
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), nil, nil)
	dest := filepath.Join(t.TempDir(), "no", "such", "dir", "out.mp4")
	_, err := dl.Download(context.Background(), testSession(server.URL), dest)
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Errorf("error = %v, want ErrWriteFailed", err)
	}
}

func TestHTTPDownloader_Download_IncompleteSession(t *testing.T) {
	dl := NewHTTPDownloader(testConfig(), nil, nil)
	_, err := dl.Download(context.Background(), domain.SessionContext{}, filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, domain.ErrNoMediaFound) {
		t.Errorf("error = %v, want ErrNoMediaFound for empty session", err)
	}
}

func TestHTTPDownloader_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Probe should use HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "1024")
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), nil, nil)
	size, err := dl.Probe(context.Background(), testSession(server.URL))
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if size != 1024 {
		t.Errorf("size = %d, want 1024", size)
	}
}

func TestHTTPDownloader_Probe_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), nil, nil)
	size, err := dl.Probe(context.Background(), testSession(server.URL))
	if err == nil {
		t.Error("Probe should fail for non-2xx status")
	}
	if size != -1 {
		t.Errorf("size = %d, want -1 on failure", size)
	}
}

// failAfterWriter accepts limit bytes, then errors.
type failAfterWriter struct {
	limit   int
	written int
}

func (f *failAfterWriter) Write(p []byte) (int, error) {
	if f.written+len(p) > f.limit {
		return 0, errors.New("disk full")
	}
	f.written += len(p)
	return len(p), nil
}

func TestTransfer_WriteErrorMidStream(t *testing.T) {
	dl := NewHTTPDownloader(testConfig(), nil, nil)
	body := strings.NewReader(strings.Repeat("x", 100))
	state := NewTransferState(100)

	err := dl.transfer(body, &failAfterWriter{limit: 20}, state, nopSink{})
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Errorf("error = %v, want ErrWriteFailed", err)
	}
	// Only bytes accepted by the destination count as transferred.
	if state.Transferred > 20 {
		t.Errorf("Transferred = %d, want <= 20", state.Transferred)
	}
}

// failAfterReader yields data, then a non-EOF error.
type failAfterReader struct {
	data io.Reader
	err  error
}

func (f *failAfterReader) Read(p []byte) (int, error) {
	n, err := f.data.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func TestTransfer_ReadErrorMidStream(t *testing.T) {
	dl := NewHTTPDownloader(testConfig(), nil, nil)
	reader := &failAfterReader{
		data: strings.NewReader("partial data"),
		err:  errors.New("connection reset"),
	}
	state := NewTransferState(-1)

	var out strings.Builder
	err := dl.transfer(reader, &out, state, nopSink{})
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Errorf("error = %v, want ErrTransferFailed", err)
	}
	if state.Transferred != int64(len("partial data")) {
		t.Errorf("Transferred = %d, want %d", state.Transferred, len("partial data"))
	}
}

func TestTransferState(t *testing.T) {
	state := NewTransferState(10)
	state.Add(4)
	if state.Transferred != 4 {
		t.Errorf("Transferred = %d, want 4", state.Transferred)
	}
	if state.Overrun() {
		t.Error("should not be overrun at 4/10")
	}
	if !state.Short() {
		t.Error("should be short at 4/10")
	}

	state.Add(6)
	if state.Overrun() || state.Short() {
		t.Error("exact total should be neither overrun nor short")
	}

	state.Add(1)
	if !state.Overrun() {
		t.Error("11/10 should be overrun")
	}

	unknown := NewTransferState(-1)
	unknown.Add(1 << 20)
	if unknown.Overrun() || unknown.Short() {
		t.Error("unknown total is never overrun or short")
	}
}

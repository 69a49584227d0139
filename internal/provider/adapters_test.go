package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/logger"
)

// fakeFileStore 用内存映射实现 store.FileStore。
type fakeFileStore struct {
	data map[string][]byte
	err  error
}

func (f *fakeFileStore) FetchRaw(_ context.Context, name string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("no such object %q", name)
	}
	return raw, nil
}

func chatCompletionJSON(content string) string {
	return fmt.Sprintf(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"test",`+
		`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func newTestOpenAI(baseURL string) *OpenAI {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = baseURL
	return &OpenAI{
		client:   openai.NewClientWithConfig(cfg),
		registry: newRegistry(model("gpt-4o", "openai", models.TierPremium)),
		log:      logger.New("openai-test", "", "").WithComponent("provider.openai"),
	}
}

// drainEvents 读完整个事件通道。通道必须已被发送方关闭。
func drainEvents(ch <-chan models.StreamEvent) []models.StreamEvent {
	var events []models.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestDeepSeekFallsBackWhenRawFetchFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionJSON("text answer"))
	}))
	defer server.Close()

	files := &fakeFileStore{err: errors.New("object storage unreachable")}
	d := NewDeepSeek(config.DeepSeekConfig{APIKey: "test-key", BaseURL: server.URL}, files, logger.New("deepseek-test", "", ""))

	result, err := d.Generate(context.Background(), &Request{
		Query:   "what is the refund policy",
		ModelID: "deepseek-chat",
		Files:   []string{"policy.pdf"},
	})
	if err != nil {
		t.Fatalf("fetch failure must not surface to the caller, got %v", err)
	}
	if result.Content != "text answer" {
		t.Errorf("unexpected content %q", result.Content)
	}
	if result.Metadata["path"] != "text-context" {
		t.Errorf("expected the text fallback path, got %v", result.Metadata["path"])
	}
}

func TestDeepSeekFallsBackWhenUploadRejected(t *testing.T) {
	uploads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/files"):
			uploads++
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"upload rejected","type":"server_error"}}`)
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chatCompletionJSON("text answer"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	files := &fakeFileStore{data: map[string][]byte{"policy.pdf": []byte("raw bytes")}}
	d := NewDeepSeek(config.DeepSeekConfig{APIKey: "test-key", BaseURL: server.URL}, files, logger.New("deepseek-test", "", ""))

	result, err := d.Generate(context.Background(), &Request{
		Query:   "what is the refund policy",
		ModelID: "deepseek-chat",
		Files:   []string{"policy.pdf"},
	})
	if err != nil {
		t.Fatalf("upload failure must not surface to the caller, got %v", err)
	}
	if uploads == 0 {
		t.Fatalf("upload endpoint was never tried")
	}
	if result.Metadata["path"] != "text-context" {
		t.Errorf("expected the text fallback path, got %v", result.Metadata["path"])
	}
}

func TestDeepSeekUploadPathUsesUploadedFiles(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/files"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"file-1","object":"file","bytes":9,"created_at":1,"filename":"policy.pdf","purpose":"assistants"}`)
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req openai.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
				prompt = req.Messages[0].Content
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chatCompletionJSON("file answer"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	files := &fakeFileStore{data: map[string][]byte{"policy.pdf": []byte("raw bytes")}}
	d := NewDeepSeek(config.DeepSeekConfig{APIKey: "test-key", BaseURL: server.URL}, files, logger.New("deepseek-test", "", ""))

	result, err := d.Generate(context.Background(), &Request{
		Query:   "what is the refund policy",
		ModelID: "deepseek-chat",
		Files:   []string{"policy.pdf"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Metadata["path"] != "file-upload" {
		t.Errorf("expected the file upload path, got %v", result.Metadata["path"])
	}
	if !strings.Contains(prompt, "file-1") {
		t.Errorf("prompt should cite the uploaded file ID, got %q", prompt)
	}
}

func TestOpenAIStreamDeliversDeltasAndDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	o := newTestOpenAI(server.URL)
	ch, err := o.GenerateStream(context.Background(), &Request{Query: "hi", ModelID: "gpt-4o"})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	events := drainEvents(ch)
	if len(events) != 3 {
		t.Fatalf("expected 2 content events and a done event, got %d: %+v", len(events), events)
	}
	if events[0].Content != "Hel" || events[1].Content != "lo" {
		t.Errorf("unexpected deltas: %+v", events[:2])
	}
	done := events[2]
	if !done.Done || done.Confidence != openaiConfidence || done.ModelID != "gpt-4o" {
		t.Errorf("unexpected done event: %+v", done)
	}
}

func TestOpenAIStreamErrorEmitsSingleErrThenCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: not-a-json-payload\n\n")
	}))
	defer server.Close()

	o := newTestOpenAI(server.URL)
	ch, err := o.GenerateStream(context.Background(), &Request{Query: "hi", ModelID: "gpt-4o"})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	events := drainEvents(ch)
	if len(events) != 1 {
		t.Fatalf("expected exactly one error event before close, got %d: %+v", len(events), events)
	}
	if events[0].Err == nil {
		t.Fatalf("expected an error event, got %+v", events[0])
	}
	if events[0].Done {
		t.Errorf("a failed stream must not end with a done event")
	}
}

func TestOpenAIStreamRejectedUpfront(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer server.Close()

	o := newTestOpenAI(server.URL)
	ch, err := o.GenerateStream(context.Background(), &Request{Query: "hi", ModelID: "gpt-4o"})
	if err == nil {
		t.Fatalf("a rejected stream request must return an error")
	}
	if ch != nil {
		t.Errorf("no channel should be handed out when the stream never opened")
	}
}

func TestOllamaGenerateParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, `{"model":"llama3","response":"local answer","done":true}`+"\n")
	}))
	defer server.Close()

	o, err := NewOllama(config.OllamaConfig{BaseURL: server.URL}, logger.New("ollama-test", "", ""))
	if err != nil {
		t.Fatalf("NewOllama failed: %v", err)
	}

	result, err := o.Generate(context.Background(), &Request{Query: "hi", ModelID: "llama3"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "local answer" {
		t.Errorf("unexpected content %q", result.Content)
	}
	if result.Confidence != ollamaConfidence {
		t.Errorf("unexpected confidence %v", result.Confidence)
	}
}

func TestOllamaStreamDeliversIncrementsAndDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, `{"model":"llama3","response":"local ","done":false}`+"\n")
		fmt.Fprint(w, `{"model":"llama3","response":"answer","done":false}`+"\n")
		fmt.Fprint(w, `{"model":"llama3","response":"","done":true}`+"\n")
	}))
	defer server.Close()

	o, err := NewOllama(config.OllamaConfig{BaseURL: server.URL}, logger.New("ollama-test", "", ""))
	if err != nil {
		t.Fatalf("NewOllama failed: %v", err)
	}

	ch, err := o.GenerateStream(context.Background(), &Request{Query: "hi", ModelID: "llama3"})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	events := drainEvents(ch)
	if len(events) != 3 {
		t.Fatalf("expected 2 content events and a done event, got %d: %+v", len(events), events)
	}
	if events[0].Content+events[1].Content != "local answer" {
		t.Errorf("unexpected increments: %+v", events[:2])
	}
	done := events[2]
	if !done.Done || done.Confidence != ollamaConfidence || done.ModelID != "llama3" {
		t.Errorf("unexpected done event: %+v", done)
	}
}

func TestOllamaStreamServerErrorEmitsSingleErrThenCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model runner crashed"}`)
	}))
	defer server.Close()

	o, err := NewOllama(config.OllamaConfig{BaseURL: server.URL}, logger.New("ollama-test", "", ""))
	if err != nil {
		t.Fatalf("NewOllama failed: %v", err)
	}

	ch, err := o.GenerateStream(context.Background(), &Request{Query: "hi", ModelID: "llama3"})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	events := drainEvents(ch)
	if len(events) != 1 {
		t.Fatalf("expected exactly one error event before close, got %d: %+v", len(events), events)
	}
	if events[0].Err == nil || !strings.Contains(events[0].Err.Error(), "ollama stream failed") {
		t.Errorf("unexpected error event: %+v", events[0])
	}
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/chalkboard/internal/retry"
	"github.com/iconidentify/chalkboard/pkg/grok"
	"github.com/iconidentify/chalkboard/pkg/whisper"
)

const chatCompletionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  Blitz up the middle.  "}, "finish_reason": "stop"}]
}`

func TestOpenAI_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletionJSON)
	}))
	defer server.Close()

	m := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})

	out, err := m.Generate(context.Background(), TextRequest{
		System:      "You are a sports analyst.",
		Prompt:      "High press",
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "Blitz up the middle." {
		t.Errorf("out = %q", out)
	}
	if body["model"] != "gpt-4o-mini" || body["max_tokens"] != float64(150) {
		t.Errorf("request body = %v", body)
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v, want system and user", body["messages"])
	}
}

func TestOpenAI_DescribeSendsImages(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		raw = string(data)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletionJSON)
	}))
	defer server.Close()

	m := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})

	if _, err := m.Describe(context.Background(), VisionRequest{Prompt: "What happens?", Images: [][]byte{[]byte("jpeg")}}); err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if !strings.Contains(raw, "data:image/jpeg;base64,anBlZw==") {
		t.Errorf("request missing image data URL: %s", raw)
	}
}

func TestOpenAI_RateLimitBecomesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit reached. Please retry after 3 seconds.","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer server.Close()

	m := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})

	_, err := m.Generate(context.Background(), TextRequest{Prompt: "x"})
	if !IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limited StatusError", err)
	}
	if d, ok := RetryDelay(err, time.Second); !ok || d != 4*time.Second {
		t.Errorf("RetryDelay = %v, %v, want 4s", d, ok)
	}
}

func TestAzure_UsesDeploymentPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4o-mini-prod/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-07-01-preview" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "azure-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletionJSON)
	}))
	defer server.Close()

	m := NewAzure(AzureConfig{APIKey: "azure-key", Endpoint: server.URL, Deployment: "gpt-4o-mini-prod"})
	if m.Name() != "azure" {
		t.Errorf("Name() = %q", m.Name())
	}
	if _, err := m.Generate(context.Background(), TextRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestGemini_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Ball on the left wing, quick cross."}]}}]}`)
	}))
	defer server.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}

	out, err := g.Describe(context.Background(), VisionRequest{Prompt: "Describe", Images: [][]byte{[]byte("jpeg")}})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if out != "Ball on the left wing, quick cross." {
		t.Errorf("out = %q", out)
	}
}

func TestGemini_TranscribeSendsInstruction(t *testing.T) {
	tests := []struct {
		name       string
		prompt     string
		wantPrompt string
	}{
		{"default instruction", "", DefaultTranscriptionPrompt},
		{"blank uses default", "   ", DefaultTranscriptionPrompt},
		{"caller prompt", "Transcribe the crowd chant.", "Transcribe the crowd chant."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Contents []struct {
					Parts []map[string]any `json:"parts"`
				} `json:"contents"`
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("decode body: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"What a save!"}]}}]}`)
			}))
			defer server.Close()

			g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-key", BaseURL: server.URL})
			if err != nil {
				t.Fatalf("NewGemini failed: %v", err)
			}

			out, err := g.Transcribe(context.Background(), AudioRequest{Prompt: tt.prompt, Audio: []byte("RIFF"), MIMEType: "audio/wav"})
			if err != nil {
				t.Fatalf("Transcribe failed: %v", err)
			}
			if out != "What a save!" {
				t.Errorf("out = %q", out)
			}

			if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 2 {
				t.Fatalf("contents = %+v, want one content with two parts", body.Contents)
			}
			parts := body.Contents[0].Parts
			for i, p := range parts {
				if len(p) == 0 {
					t.Errorf("part %d is empty", i)
				}
			}
			if parts[0]["text"] != tt.wantPrompt {
				t.Errorf("instruction = %v, want %q", parts[0]["text"], tt.wantPrompt)
			}
			if _, ok := parts[1]["inlineData"]; !ok {
				t.Errorf("second part = %v, want inlineData", parts[1])
			}
		})
	}
}

func TestGemini_GenerateSkipsBlankPrompt(t *testing.T) {
	var body struct {
		Contents []struct {
			Parts []map[string]any `json:"parts"`
		} `json:"contents"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Corner kick."}]}}]}`)
	}))
	defer server.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	if _, err := g.Describe(context.Background(), VisionRequest{Images: [][]byte{[]byte("jpeg")}}); err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 1 {
		t.Fatalf("contents = %+v, want only the image part", body.Contents)
	}
	if _, ok := body.Contents[0].Parts[0]["inlineData"]; !ok {
		t.Errorf("part = %v, want inlineData", body.Contents[0].Parts[0])
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiConfig{}); err == nil {
		t.Error("expected error without api key")
	}
}

type fakeGrokClient struct {
	out string
	err error
	req grok.CompletionRequest
}

func (f *fakeGrokClient) Complete(_ context.Context, req grok.CompletionRequest) (string, error) {
	f.req = req
	return f.out, f.err
}

func TestGrok_Adapter(t *testing.T) {
	fake := &fakeGrokClient{out: "```\nHail Mary.\n```"}
	g := NewGrok(fake)

	out, err := g.Describe(context.Background(), VisionRequest{Prompt: "p", Images: [][]byte{{1}}, Temperature: 0.4})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if out != "Hail Mary." {
		t.Errorf("out = %q", out)
	}
	if len(fake.req.Images) != 1 || fake.req.Temperature == nil || *fake.req.Temperature != 0.4 {
		t.Errorf("request = %+v", fake.req)
	}

	fake.err = &grok.APIError{StatusCode: 503, Body: "overloaded", RetryAfter: "2"}
	_, err = g.Generate(context.Background(), TextRequest{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 || se.RetryAfter != "2" {
		t.Errorf("err = %v, want StatusError 503", err)
	}
}

type fakeWhisperClient struct {
	text string
	err  error
	req  whisper.Clip
}

func (f *fakeWhisperClient) Transcribe(_ context.Context, clip whisper.Clip) (*whisper.Transcript, error) {
	f.req = clip
	if f.err != nil {
		return nil, f.err
	}
	return &whisper.Transcript{Text: f.text}, nil
}

func TestWhisper_Adapter(t *testing.T) {
	fake := &fakeWhisperClient{text: "  And it's in!  "}
	w := NewWhisper(fake, "whisper-1")

	out, err := w.Transcribe(context.Background(), AudioRequest{Audio: []byte("RIFF")})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if out != "And it's in!" {
		t.Errorf("out = %q", out)
	}
	if fake.req.Filename != "segment.wav" || fake.req.Model != "whisper-1" || fake.req.Language != "en" {
		t.Errorf("request = %+v", fake.req)
	}

	fake.err = &whisper.APIError{StatusCode: 429, Body: "slow down"}
	if _, err := w.Transcribe(context.Background(), AudioRequest{Audio: []byte("RIFF")}); !IsRateLimited(err) {
		t.Errorf("err = %v, want rate limited", err)
	}
}

type flakyText struct {
	errs  []error
	calls atomic.Int32
}

func (f *flakyText) Name() string { return "flaky" }

func (f *flakyText) Generate(context.Context, TextRequest) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	return "ok", nil
}

func fastPolicy(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantErr   bool
		wantCalls int32
	}{
		{"succeeds first time", nil, 3, false, 1},
		{"retries 503", []error{&StatusError{StatusCode: 503}}, 3, false, 2},
		{"retries 429 with capped hint", []error{&StatusError{StatusCode: 429, Body: "retry after 60 seconds"}}, 2, false, 2},
		{"does not retry 400", []error{&StatusError{StatusCode: 400}}, 3, true, 1},
		{"gives up", []error{&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}}, 2, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &flakyText{errs: tt.errs}
			wrapped := WithRetry(model, fastPolicy(tt.attempts))

			out, err := wrapped.Generate(context.Background(), TextRequest{Prompt: "x"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out != "ok" {
				t.Errorf("out = %q", out)
			}
			if n := model.calls.Load(); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
			if wrapped.Name() != "flaky" {
				t.Errorf("Name() = %q", wrapped.Name())
			}
		})
	}
}

func TestWithRetry_Nil(t *testing.T) {
	if WithRetry(nil, fastPolicy(2)) != nil {
		t.Error("WithRetry(nil) should be nil")
	}
	if WithVisionRetry(nil, fastPolicy(2)) != nil {
		t.Error("WithVisionRetry(nil) should be nil")
	}
	if WithAudioRetry(nil, fastPolicy(2)) != nil {
		t.Error("WithAudioRetry(nil) should be nil")
	}
}

func TestSelect(t *testing.T) {
	gemini := &Gemini{model: "m"}
	azure := &OpenAI{name: "azure"}
	openAI := &OpenAI{name: "openai"}
	grokModel := NewGrok(&fakeGrokClient{})

	tests := []struct {
		name      string
		provider  string
		providers Providers
		want      string
		wantErr   bool
	}{
		{"auto prefers gemini", "auto", Providers{Gemini: gemini, Azure: azure, OpenAI: openAI, Grok: grokModel}, "gemini", false},
		{"auto then azure", "auto", Providers{Azure: azure, OpenAI: openAI}, "azure", false},
		{"auto then openai", "", Providers{OpenAI: openAI, Grok: grokModel}, "openai", false},
		{"auto then grok", "auto", Providers{Grok: grokModel}, "grok", false},
		{"auto nothing configured", "auto", Providers{}, "", false},
		{"none", "none", Providers{Gemini: gemini}, "", false},
		{"named", "grok", Providers{Gemini: gemini, Grok: grokModel}, "grok", false},
		{"named but missing", "azure", Providers{Gemini: gemini}, "", false},
		{"unknown", "claude", Providers{Gemini: gemini}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Select(tt.provider, tt.providers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			got := ""
			if m != nil {
				got = m.Name()
			}
			if got != tt.want {
				t.Errorf("Select(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestSelectAudio(t *testing.T) {
	w := NewWhisper(&fakeWhisperClient{}, "")
	g := &Gemini{model: "m"}

	cases := []struct {
		name string
		w    *Whisper
		g    *Gemini
		want string
	}{
		{"auto", w, g, "whisper"},
		{"auto", nil, g, "gemini"},
		{"auto", nil, nil, ""},
		{"gemini", w, g, "gemini"},
		{"whisper", nil, g, ""},
		{"none", w, g, ""},
	}

	for _, c := range cases {
		m, err := SelectAudio(c.name, c.w, c.g)
		if err != nil {
			t.Fatalf("SelectAudio(%q) error: %v", c.name, err)
		}
		got := ""
		if m != nil {
			got = m.Name()
		}
		if got != c.want {
			t.Errorf("SelectAudio(%q) = %q, want %q", c.name, got, c.want)
		}
	}

	if _, err := SelectAudio("deepgram", w, g); err == nil {
		t.Error("expected error for unknown audio provider")
	}
}

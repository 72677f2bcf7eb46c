package analogy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/chalkboard/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedText answers calls in order and records the requests.
type scriptedText struct {
	outs []string
	errs []error
	reqs []llm.TextRequest
}

func (s *scriptedText) Name() string { return "scripted" }

func (s *scriptedText) Generate(_ context.Context, req llm.TextRequest) (string, error) {
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	var out string
	var err error
	if i < len(s.outs) {
		out = s.outs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func TestStubAnalogy(t *testing.T) {
	tests := []struct {
		commentary string
		want       string
	}{
		{"High pressing from the back", StubBlitz},
		{"They apply PRESSURE high up", StubBlitz},
		{"A quick counter down the left", StubPickSix},
		{"Winger sprints clear", StubPickSix},
		{"The back four stays compact", StubPrevent},
		{"Striker drives forward", StubRedZone},
		{"GOAL!", StubRedZone},
		{"Throw-in near halfway", StubDefault},
		{"", StubDefault},
		// first bucket wins
		{"Pressing leads to a counter attack", StubBlitz},
	}

	for _, tt := range tests {
		t.Run(tt.commentary, func(t *testing.T) {
			if got := StubAnalogy(tt.commentary); got != tt.want {
				t.Errorf("StubAnalogy(%q) = %q, want %q", tt.commentary, got, tt.want)
			}
		})
	}
}

func TestStubNFL(t *testing.T) {
	tests := []struct {
		commentary    string
		wantBroadcast string
	}{
		{"He finds the net", "Touchdown! The offense finds the end zone after a methodical drive downfield!"},
		{"Great save by the keeper", "What a defensive stand! The goal-line defense holds strong and denies the score!"},
		{"A lovely through ball", "A perfectly placed throw across the middle! The receiver makes the catch in traffic!"},
		{"Fast break on the right", "The offense strikes fast on the counter! They caught the defense completely off-guard!"},
		{"Players walk off", "Steady progress on the drive as the offense continues to move the chains efficiently."},
	}

	for _, tt := range tests {
		t.Run(tt.commentary, func(t *testing.T) {
			analogy, broadcast := StubNFL(tt.commentary)
			if analogy == "" {
				t.Error("analogy should not be empty")
			}
			if broadcast != tt.wantBroadcast {
				t.Errorf("broadcast = %q, want %q", broadcast, tt.wantBroadcast)
			}
		})
	}
}

// hangingText blocks until its context ends.
type hangingText struct{}

func (hangingText) Name() string { return "hanging" }

func (hangingText) Generate(ctx context.Context, _ llm.TextRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerator_Timeout(t *testing.T) {
	g := NewGenerator(hangingText{}, testLogger(), WithTimeout(20*time.Millisecond))

	start := time.Now()
	if got := g.Generate(context.Background(), "High pressing from the back"); got != StubBlitz {
		t.Errorf("Generate() = %q, want blitz stub", got)
	}
	a, b := g.NFL(context.Background(), "Great save by the keeper")
	wantA, wantB := StubNFL("Great save by the keeper")
	if a != wantA || b != wantB {
		t.Errorf("NFL() = %q, %q, want stub pair", a, b)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("calls took %v, want them bounded by the timeout", elapsed)
	}
}

func TestNewGenerator_DefaultTimeout(t *testing.T) {
	if g := NewGenerator(nil, testLogger()); g.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", g.timeout, DefaultTimeout)
	}
	if g := NewGenerator(nil, testLogger(), WithTimeout(0)); g.timeout != DefaultTimeout {
		t.Errorf("zero override: timeout = %v, want %v", g.timeout, DefaultTimeout)
	}
}

func TestGenerate(t *testing.T) {
	t.Run("no model uses stub", func(t *testing.T) {
		g := NewGenerator(nil, testLogger())
		if got := g.Generate(context.Background(), "High pressing from the back"); got != StubBlitz {
			t.Errorf("Generate() = %q, want blitz stub", got)
		}
		if g.Available() {
			t.Error("Available() should be false")
		}
	})

	t.Run("model output trimmed", func(t *testing.T) {
		model := &scriptedText{outs: []string{"  Like a quarterback sneak.\n"}}
		g := NewGenerator(model, testLogger())

		got := g.Generate(context.Background(), "Midfielder slips through")
		if got != "Like a quarterback sneak." {
			t.Errorf("Generate() = %q", got)
		}
		req := model.reqs[0]
		if req.MaxTokens != 150 {
			t.Errorf("MaxTokens = %d, want 150", req.MaxTokens)
		}
		if !strings.Contains(req.Prompt, `"Midfielder slips through"`) || !strings.HasSuffix(req.Prompt, "Respond with ONLY the NFL analogy, no preamble.") {
			t.Errorf("unexpected prompt:\n%s", req.Prompt)
		}
	})

	t.Run("error falls back", func(t *testing.T) {
		model := &scriptedText{errs: []error{errors.New("boom")}}
		g := NewGenerator(model, testLogger())
		if got := g.Generate(context.Background(), "defend deep"); got != StubPrevent {
			t.Errorf("Generate() = %q, want prevent stub", got)
		}
	})

	t.Run("empty output falls back", func(t *testing.T) {
		model := &scriptedText{outs: []string{"   "}}
		g := NewGenerator(model, testLogger())
		if got := g.Generate(context.Background(), "nothing much"); got != StubDefault {
			t.Errorf("Generate() = %q, want default stub", got)
		}
	})
}

func TestNFL(t *testing.T) {
	t.Run("blank input", func(t *testing.T) {
		model := &scriptedText{}
		a, b := NewGenerator(model, testLogger()).NFL(context.Background(), "  ")
		if a != "" || b != "" || len(model.reqs) != 0 {
			t.Errorf("NFL(blank) = %q, %q after %d calls", a, b, len(model.reqs))
		}
	})

	t.Run("two steps", func(t *testing.T) {
		model := &scriptedText{outs: []string{"The defense blitzes.", "Here comes the blitz!"}}
		a, b := NewGenerator(model, testLogger()).NFL(context.Background(), "Pressing high")

		if a != "The defense blitzes." || b != "Here comes the blitz!" {
			t.Errorf("NFL() = %q, %q", a, b)
		}
		if len(model.reqs) != 2 {
			t.Fatalf("calls = %d, want 2", len(model.reqs))
		}
		if model.reqs[0].Temperature != 0.7 || model.reqs[0].MaxTokens != 200 {
			t.Errorf("step 1 request = %+v", model.reqs[0])
		}
		if model.reqs[1].Temperature != 0.8 || model.reqs[1].MaxTokens != 100 {
			t.Errorf("step 2 request = %+v", model.reqs[1])
		}
		if !strings.Contains(model.reqs[1].Prompt, `"The defense blitzes."`) {
			t.Error("step 2 should be built from the step 1 analogy")
		}
	})

	t.Run("second step failure uses stub pair", func(t *testing.T) {
		model := &scriptedText{outs: []string{"analogy"}, errs: []error{nil, errors.New("429")}}
		a, b := NewGenerator(model, testLogger()).NFL(context.Background(), "Great save")
		wantA, wantB := StubNFL("Great save")
		if a != wantA || b != wantB {
			t.Errorf("NFL() = %q, %q, want stub pair", a, b)
		}
	})

	t.Run("no model", func(t *testing.T) {
		a, b := NewGenerator(nil, testLogger()).NFL(context.Background(), "goal!")
		wantA, wantB := StubNFL("goal!")
		if a != wantA || b != wantB {
			t.Errorf("NFL() = %q, %q", a, b)
		}
	})
}

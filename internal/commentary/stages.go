package commentary

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// Stage names.
const (
	StageVision   = "vision"
	StageCaptions = "captions"
	StageAudio    = "audio"
	StageStub     = "stub"
)

// Default stage timeouts.
const (
	DefaultVisionTimeout  = 15 * time.Second
	DefaultCaptionTimeout = 2 * time.Second
	DefaultAudioTimeout   = 15 * time.Second
)

// audioPadding is how far either side of the moment the audio stage listens.
const audioPadding = 5.0

// StubPool holds the placeholder commentary used when every real source
// failed.
var StubPool = []string{
	"Players are moving into position, creating space for a potential attack.",
	"The team is building up play from the back, looking for passing options.",
	"A counter-attack is developing with players sprinting forward.",
	"Defensive shape is compact, denying space in the central areas.",
	"The ball is in the final third, with attackers looking for an opening.",
}

// StubCommentary returns a random sentence from StubPool.
func StubCommentary() string {
	return StubPool[rand.IntN(len(StubPool))]
}

// FrameWindower returns the frames leading up to a moment.
type FrameWindower interface {
	Window(ctx context.Context, ref string, t, window float64) []domain.Frame
}

// Describer turns frames into commentary.
type Describer interface {
	Available() bool
	Describe(ctx context.Context, frames []domain.Frame) (string, error)
}

// CaptionLookup returns the caption showing at a moment.
type CaptionLookup interface {
	AtTimestamp(ctx context.Context, ref string, t float64) (string, bool)
}

// Transcriber returns the speech in a time range.
type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, ref string, start, end float64) (string, error)
}

// Sources are the inputs of the analysis chain. Nil or unavailable sources
// leave their stage out.
type Sources struct {
	Frames   FrameWindower
	Vision   Describer
	Captions CaptionLookup
	Audio    Transcriber
}

// Timeouts bound each analysis stage. Zero values use the defaults.
type Timeouts struct {
	Vision   time.Duration
	Captions time.Duration
	Audio    time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Vision <= 0 {
		t.Vision = DefaultVisionTimeout
	}
	if t.Captions <= 0 {
		t.Captions = DefaultCaptionTimeout
	}
	if t.Audio <= 0 {
		t.Audio = DefaultAudioTimeout
	}
	return t
}

// AnalysisStages builds the analysis fallback chain: vision, captions,
// audio, then the stub, which always succeeds. window is the frame window
// in seconds for the vision stage.
func AnalysisStages(src Sources, timeouts Timeouts, window float64) []Stage {
	timeouts = timeouts.withDefaults()
	if window <= 0 {
		window = DefaultWindowSeconds
	}

	var stages []Stage

	if src.Frames != nil && src.Vision != nil && src.Vision.Available() {
		stages = append(stages, Stage{
			Name:    StageVision,
			Timeout: timeouts.Vision,
			Run: func(ctx context.Context, req Request) (string, error) {
				frames := src.Frames.Window(ctx, req.VideoID, req.Timestamp, window)
				if len(frames) == 0 {
					return "", domain.ErrNoFrames
				}
				return src.Vision.Describe(ctx, frames)
			},
		})
	}

	if src.Captions != nil {
		stages = append(stages, Stage{
			Name:    StageCaptions,
			Timeout: timeouts.Captions,
			Run: func(ctx context.Context, req Request) (string, error) {
				text, ok := src.Captions.AtTimestamp(ctx, req.VideoID, req.Timestamp)
				if !ok {
					return "", domain.ErrNoCaptions
				}
				return text, nil
			},
		})
	}

	if src.Audio != nil && src.Audio.Available() {
		stages = append(stages, Stage{
			Name:    StageAudio,
			Timeout: timeouts.Audio,
			Run: func(ctx context.Context, req Request) (string, error) {
				return src.Audio.Transcribe(ctx, req.VideoID, req.Timestamp-audioPadding, req.Timestamp+audioPadding)
			},
		})
	}

	return append(stages, Stage{
		Name: StageStub,
		Run: func(context.Context, Request) (string, error) {
			return StubCommentary(), nil
		},
	})
}

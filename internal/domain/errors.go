package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidRequest is returned when a required request field is missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoCaptions is returned when a video has no usable caption track.
	ErrNoCaptions = errors.New("no captions available")

	// ErrNoStreamURL is returned when no seekable media URL could be resolved.
	ErrNoStreamURL = errors.New("no stream URL resolved")

	// ErrNoFrames is returned when frame extraction produced nothing.
	ErrNoFrames = errors.New("no frames extracted")

	// ErrEmptyDescription is returned when a vision provider answered with empty or unusable text.
	ErrEmptyDescription = errors.New("empty vision description")

	// ErrEmptyTranscript is returned when speech-to-text produced no text.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrProviderUnavailable is returned when a capability has no configured provider.
	ErrProviderUnavailable = errors.New("provider not configured")

	// ErrRateLimited matches provider 429 answers.
	ErrRateLimited = errors.New("rate limited")

	// ErrMetadataNotFound is returned when video metadata cannot be extracted.
	ErrMetadataNotFound = errors.New("video metadata not found")

	// ErrEmptyText is returned when text-to-speech is asked to speak nothing.
	ErrEmptyText = errors.New("text is empty")

	// ErrSynthesisFailed is returned when the speech provider did not return audio.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// StageError wraps an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage string, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}

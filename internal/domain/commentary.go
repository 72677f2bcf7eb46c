package domain

// CaptionRecord is one timed line of a caption track.
type CaptionRecord struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns the time the caption stops being displayed.
func (c CaptionRecord) End() float64 {
	return c.Start + c.Duration
}

// Frame is a single decoded still, already downscaled and JPEG encoded.
type Frame struct {
	Timestamp float64
	JPEG      []byte
}

// Analysis is the result of the request/response analysis flow.
type Analysis struct {
	OriginalCommentary string  `json:"originalCommentary"`
	NFLAnalogy         string  `json:"nflAnalogy"`
	Timestamp          float64 `json:"timestamp"`
	Source             string  `json:"source,omitempty"`
}

// CommentaryResult is the output of the live commentary flow.
// A suppressed result has Skipped set and no Commentary; a failed result has
// Error set and neither Commentary nor RawAction.
type CommentaryResult struct {
	Commentary *string `json:"commentary"`
	RawAction  *string `json:"rawAction"`
	Timestamp  float64 `json:"timestamp"`
	Skipped    bool    `json:"skipped"`
	Error      string  `json:"error,omitempty"`
}

// Accepted builds a result for commentary that passed deduplication.
func Accepted(text string, timestamp float64) CommentaryResult {
	return CommentaryResult{
		Commentary: &text,
		RawAction:  &text,
		Timestamp:  timestamp,
	}
}

// Suppressed builds a result for commentary dropped as a near repeat.
func Suppressed(raw string, timestamp float64) CommentaryResult {
	return CommentaryResult{
		RawAction: &raw,
		Timestamp: timestamp,
		Skipped:   true,
	}
}

// Failed builds a result for a pipeline error.
func Failed(err error, timestamp float64) CommentaryResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return CommentaryResult{
		Timestamp: timestamp,
		Error:     msg,
	}
}

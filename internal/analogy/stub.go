package analogy

import "strings"

// Canned analogies used when no text model is configured or a call fails.
const (
	StubBlitz   = "This is like an all-out blitz — sending extra defenders to force a quick decision and create pressure on the ball carrier."
	StubPickSix = "This is a pick-six moment! The team just won the ball and is racing forward before the defense can reset — speed and timing are everything."
	StubPrevent = "The defense is in prevent mode — staying compact, protecting the middle, and forcing the offense to make mistakes."
	StubRedZone = "This is like a well-designed red zone play — the offense is probing for weaknesses, creating space, and looking for the perfect moment to strike."
	StubDefault = "This play is like a well-designed offensive scheme — every player has a role, creating space and options, waiting for the defense to make a mistake."
)

type bucket struct {
	keywords []string
	analogy  string
	// broadcast is only set for the NFL pair buckets.
	broadcast string
}

var analogyBuckets = []bucket{
	{keywords: []string{"press", "pressing", "pressure"}, analogy: StubBlitz},
	{keywords: []string{"counter", "break", "sprint"}, analogy: StubPickSix},
	{keywords: []string{"defensive", "defend", "compact"}, analogy: StubPrevent},
	{keywords: []string{"attack", "forward", "goal"}, analogy: StubRedZone},
}

var pairBuckets = []bucket{
	{
		keywords:  []string{"goal", "score", "net"},
		analogy:   "The offense drove down the field with precision, finding the gap in the defense for a clean touchdown. The quarterback's patience paid off as the receiver broke free in the end zone.",
		broadcast: "Touchdown! The offense finds the end zone after a methodical drive downfield!",
	},
	{
		keywords:  []string{"save", "block", "keeper"},
		analogy:   "The defense stood tall at the goal line, stuffing the run and forcing an incompletion on a critical fourth-down attempt. That's championship-caliber defense.",
		broadcast: "What a defensive stand! The goal-line defense holds strong and denies the score!",
	},
	{
		keywords:  []string{"pass", "through", "cross"},
		analogy:   "The quarterback surveys the field and hits the receiver on a crossing route, threading the needle between two defenders. Great vision and execution.",
		broadcast: "A perfectly placed throw across the middle! The receiver makes the catch in traffic!",
	},
	{
		keywords:  []string{"counter", "break", "fast"},
		analogy:   "The offense catches the defense in transition with a quick-hitting play. Before the secondary can recover, they're already past the first-down marker.",
		broadcast: "The offense strikes fast on the counter! They caught the defense completely off-guard!",
	},
}

var defaultPair = bucket{
	analogy:   "The offense methodically moves the chains, using a balanced attack to keep the defense guessing. Good protection up front gives the quarterback time to work.",
	broadcast: "Steady progress on the drive as the offense continues to move the chains efficiently.",
}

func match(buckets []bucket, text string) (bucket, bool) {
	lower := strings.ToLower(text)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b, true
			}
		}
	}
	return bucket{}, false
}

// StubAnalogy picks a canned analogy by keyword. Matching is a
// case-insensitive substring test, first bucket wins.
func StubAnalogy(commentary string) string {
	if b, ok := match(analogyBuckets, commentary); ok {
		return b.analogy
	}
	return StubDefault
}

// StubNFL returns the canned (analogy, broadcast) pair for commentary.
func StubNFL(commentary string) (string, string) {
	b, ok := match(pairBuckets, commentary)
	if !ok {
		b = defaultPair
	}
	return b.analogy, b.broadcast
}

package chat

import (
	"fmt"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
)

const systemPrompt = "You are a knowledgeable soccer analyst helping users understand soccer tactics and plays in videos. Provide clear, concise explanations using soccer terminology. If asked about NFL analogies, use American football comparisons. Be helpful and specific about what's happening in the video."

const maxPromptDescription = 300

// genericPhrases mark commentary produced by the stub fallbacks.
var genericPhrases = []string{
	"soccer action at",
	"well-designed offensive scheme",
	"every player has a role",
	"players are moving into position",
	"the team is building up play",
	"counter-attack is developing",
	"defensive shape is compact",
	"ball is in the final third",
}

var nowPhrases = []string{
	"now", "current", "happening now", "what's happening", "whats happening",
	"what happened now", "whats happening now", "what is happening now", "what happens now",
}

// IsGeneric reports whether commentary or analogy contains a placeholder
// phrase.
func IsGeneric(commentary, analogy string) bool {
	c, a := strings.ToLower(commentary), strings.ToLower(analogy)
	for _, p := range genericPhrases {
		if strings.Contains(c, p) || strings.Contains(a, p) {
			return true
		}
	}
	return false
}

func asksAboutNow(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range nowPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// promptInput is everything that shapes the user prompt.
type promptInput struct {
	req       Request
	target    float64
	specific  bool // the user named a time or asked about "now"
	captions  []domain.CaptionRecord
	windowLow float64
	windowHi  float64
}

func buildPrompt(in promptInput) string {
	var b strings.Builder
	req := in.req
	play := req.Context
	current := domain.FormatClock(req.CurrentTime)
	target := domain.FormatClock(in.target)
	window := domain.FormatClock(in.windowLow) + " - " + domain.FormatClock(in.windowHi)

	title := ""
	if req.Metadata != nil {
		title = req.Metadata.Title
	}

	fmt.Fprintf(&b, "USER QUESTION: %s\n\nCURRENT VIDEO TIME: %s\n\n", req.Message, current)

	if req.Metadata != nil {
		b.WriteString("VIDEO INFORMATION:\n")
		fmt.Fprintf(&b, "Title: %s\n", title)
		if d := req.Metadata.Description; d != "" {
			fmt.Fprintf(&b, "Description: %s...\n", truncateRunes(d, maxPromptDescription))
		}
		b.WriteString("\n")
	}

	generic := false
	if play != nil {
		generic = IsGeneric(play.Commentary, play.NFLAnalogy)
		if play.Commentary != "" {
			if generic {
				fmt.Fprintf(&b, "NOTE: The analysis below is generic/placeholder. The video shows a soccer match at %s. ", current)
				b.WriteString("Use your knowledge of soccer to answer specifically about what's happening. ")
				fmt.Fprintf(&b, "Generic analysis (ignore if too vague): %s\n\n", play.Commentary)
			} else {
				fmt.Fprintf(&b, "CURRENT PLAY ANALYSIS: %s\n\n", play.Commentary)
			}
		}
		if play.NFLAnalogy != "" && !generic {
			fmt.Fprintf(&b, "NFL ANALOGY: %s\n\n", play.NFLAnalogy)
		}
	}

	lines := captionLines(in.captions)
	if len(lines) > 0 {
		fmt.Fprintf(&b, "USER IS ASKING ABOUT TIMESTAMP %s (analyzing captions from %s - 5 seconds before and 5 seconds after):\n\n", target, window)
		b.WriteString("=== VIDEO CAPTIONS/COMMENTARY (PRIMARY SOURCE) ===\n")
		b.WriteString(strings.Join(lines, "\n") + "\n\n")
		fmt.Fprintf(&b, "This is what the commentators said during the time period around %s (from %s). Use this as your PRIMARY source to answer the question.\n", target, window)
		b.WriteString("Be specific - mention goals, shots, saves, player actions, and key moments mentioned in the captions.\n")
		b.WriteString("If captions mention 'GOAL', 'scored', 'celebrates', or similar, state it clearly!\n")
		fmt.Fprintf(&b, "Focus on what happened at or around %s based on these captions.\n\n", target)
	} else {
		fmt.Fprintf(&b, "USER IS ASKING ABOUT TIMESTAMP %s:\n\n", target)
		b.WriteString("No captions available for this timestamp. Answer based on video metadata and context provided.\n\n")
	}

	if play != nil && play.Caption != "" {
		fmt.Fprintf(&b, "CURRENT VIDEO CAPTION/COMMENTARY AT %s: %s\n", current, play.Caption)
		b.WriteString("This is the actual commentary from the video at the current playback time.\n\n")
	}

	if play.empty() && len(lines) == 0 {
		fmt.Fprintf(&b, "NOTE: Limited context available. The user is watching a soccer video at %s. ", current)
		if title != "" {
			fmt.Fprintf(&b, "The video is titled: '%s'. ", title)
		}
		b.WriteString("Use your knowledge of soccer to answer specifically about what typically happens at this moment.\n\n")
	}

	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", req.Message)

	switch {
	case in.specific:
		fmt.Fprintf(&b, "INSTRUCTIONS: The user is asking about what happened at timestamp %s (window %s). ", target, window)
		fmt.Fprintf(&b, "Pay attention to what follows %s as well - goals often happen a few seconds after the shot or pass. ", target)
		if len(lines) > 0 {
			b.WriteString("Use the VIDEO CAPTIONS provided above as your PRIMARY source. ")
			b.WriteString("The captions contain the commentator's real-time description. ")
			if title != "" {
				fmt.Fprintf(&b, "The video is titled '%s' - use this for team names and context. ", title)
			}
			b.WriteString("Be SPECIFIC - mention goals, shots, saves, player actions, and key moments mentioned in the captions. ")
			b.WriteString("If captions mention 'GOAL', 'scored', 'celebrates', or similar, state it clearly!")
		} else {
			b.WriteString("Answer based on the video metadata and context provided. ")
			if title != "" {
				fmt.Fprintf(&b, "The video is titled '%s' - use this for context. ", title)
			}
			b.WriteString("Be SPECIFIC about what happened during this time period.")
		}
	case generic:
		b.WriteString("INSTRUCTIONS: The analysis above is generic/placeholder. ")
		if title != "" {
			fmt.Fprintf(&b, "However, the video is titled '%s' - use this to understand what's happening. ", title)
		}
		if play.Caption != "" {
			b.WriteString("The CURRENT VIDEO CAPTION above shows what the commentators said - use that as the primary source. ")
		}
		b.WriteString("Answer based on the video title, caption (if provided), and your knowledge of soccer. ")
		fmt.Fprintf(&b, "Be SPECIFIC - mention what type of play, tactics, or situation is happening at %s.", current)
	default:
		b.WriteString("INSTRUCTIONS: Answer the question SPECIFICALLY about this moment. ")
		if play != nil && play.Caption != "" {
			b.WriteString("The CURRENT VIDEO CAPTION shows what actually happened - prioritize that information. ")
		}
		b.WriteString("Reference the analysis and caption provided above. ")
		b.WriteString("If the question is about the video itself, be specific about what's happening at this timestamp. Don't give generic responses - be detailed and specific.")
	}

	return b.String()
}

func captionLines(records []domain.CaptionRecord) []string {
	var lines []string
	for _, r := range records {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("At %s: %s", domain.FormatClock(r.Start), text))
	}
	return lines
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

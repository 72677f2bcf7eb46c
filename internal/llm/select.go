package llm

import "fmt"

// Provider names accepted by Select.
const (
	ProviderAuto    = "auto"
	ProviderNone    = "none"
	ProviderGemini  = "gemini"
	ProviderAzure   = "azure"
	ProviderOpenAI  = "openai"
	ProviderGrok    = "grok"
	ProviderWhisper = "whisper"
)

// autoOrder is the preference used for "auto".
var autoOrder = []string{ProviderGemini, ProviderAzure, ProviderOpenAI, ProviderGrok}

// Providers holds the adapters that were configured at startup.
// Unconfigured providers are nil.
type Providers struct {
	Gemini *Gemini
	Azure  *OpenAI
	OpenAI *OpenAI
	Grok   *Grok
}

func (p Providers) lookup(name string) (Model, bool) {
	switch name {
	case ProviderGemini:
		if p.Gemini != nil {
			return p.Gemini, true
		}
	case ProviderAzure:
		if p.Azure != nil {
			return p.Azure, true
		}
	case ProviderOpenAI:
		if p.OpenAI != nil {
			return p.OpenAI, true
		}
	case ProviderGrok:
		if p.Grok != nil {
			return p.Grok, true
		}
	}
	return nil, false
}

// Select picks the provider for a capability. "auto" takes the first
// configured provider in the order gemini, azure, openai, grok. "none", or a
// named provider that is not configured, yields nil (stub mode).
func Select(name string, p Providers) (Model, error) {
	switch name {
	case "", ProviderAuto:
		for _, candidate := range autoOrder {
			if m, ok := p.lookup(candidate); ok {
				return m, nil
			}
		}
		return nil, nil
	case ProviderNone:
		return nil, nil
	case ProviderGemini, ProviderAzure, ProviderOpenAI, ProviderGrok:
		m, _ := p.lookup(name)
		return m, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// SelectAudio picks the transcription provider. "auto" prefers Whisper,
// then Gemini.
func SelectAudio(name string, w *Whisper, g *Gemini) (AudioModel, error) {
	switch name {
	case "", ProviderAuto:
		if w != nil {
			return w, nil
		}
		if g != nil {
			return g, nil
		}
		return nil, nil
	case ProviderNone:
		return nil, nil
	case ProviderWhisper:
		if w != nil {
			return w, nil
		}
		return nil, nil
	case ProviderGemini:
		if g != nil {
			return g, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown audio provider %q", name)
	}
}

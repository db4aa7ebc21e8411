package core

import (
	"context"
	"strings"

	"tasting_bot/pkg"
)

// Flow names a group of steps
type Flow string

const (
	FlowIntake   Flow = "intake"
	FlowInfusion Flow = "infusion"
	FlowTags     Flow = "tags"
	FlowEdit     Flow = "edit"
	FlowSearch   Flow = "search"
)

// Step identifies one node of the step table, e.g. "intake.name"
type Step string

// StepNone marks a session without an active flow
const StepNone Step = ""

// Flow returns the flow prefix of the step identifier
func (s Step) Flow() Flow {
	flow, _, _ := strings.Cut(string(s), ".")
	return Flow(flow)
}

// Option is one button of a prompt
type Option struct {
	Label    string `json:"label"`
	Token    string `json:"token"`
	Selected bool   `json:"selected,omitempty"`
}

// Prompt is what the user sees for the current step
type Prompt struct {
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
}

// Completion describes the result of a finished flow
type Completion struct {
	Flow Flow `json:"flow"`
	// TastingID is the created (intake) or modified (edit) aggregate.
	TastingID int64 `json:"tasting_id,omitempty"`
	// Search is the query a search flow resolved to. Nil when the input was rejected.
	Search *pkg.Query `json:"search,omitempty"`
	Notice string     `json:"notice,omitempty"`
}

// Output is the result of processing one event
type Output struct {
	SessionID string `json:"session_id"`
	Step      Step   `json:"step"`
	Prompt    Prompt `json:"prompt"`
	// Transition is false when the same step is prompted again (toggle, rejected input).
	Transition bool `json:"transition"`
	// Ignored is set for stale buttons and unknown steps; nothing changed.
	Ignored    bool        `json:"ignored,omitempty"`
	Notice     string      `json:"notice,omitempty"`
	Completion *Completion `json:"completion,omitempty"`
}

// SessionStore keeps one draft and step marker per session
type SessionStore interface {
	// GetStep returns StepNone when the session does not exist.
	GetStep(ctx context.Context, sessionID string) (Step, error)
	// GetDraft returns an empty draft when the session does not exist.
	GetDraft(ctx context.Context, sessionID string) (Draft, error)
	UpdateDraft(ctx context.Context, sessionID string, partial Draft) error
	SetStep(ctx context.Context, sessionID string, step Step) error
	Clear(ctx context.Context, sessionID string) error
}

// Observer receives flow events, e.g. for metrics
type Observer interface {
	StepEntered(step Step)
	FlowCompleted(flow Flow)
	FlowFailed(flow Flow)
}

type nopObserver struct{}

func (nopObserver) StepEntered(Step)   {}
func (nopObserver) FlowCompleted(Flow) {}
func (nopObserver) FlowFailed(Flow)    {}

// Vocabulary holds the preset choices offered by the steps
type Vocabulary struct {
	Categories  []string `yaml:"categories"`
	Bodies      []string `yaml:"bodies"`
	Effects     []string `yaml:"effects"`
	Scenarios   []string `yaml:"scenarios"`
	Descriptors []string `yaml:"descriptors"`
	Aftertaste  []string `yaml:"aftertaste"`
}

// DefaultVocabulary is used when no vocabulary file is configured
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: []string{"Green", "White", "Red", "Oolong", "Shou Puer", "Sheng Puer", "Hei Cha"},
		Bodies:     []string{"thin", "light", "medium", "dense", "oily"},
		Effects:    []string{"Warmth", "Cooling", "Relaxation", "Focus", "Energy", "Tone", "Calm", "Drowsiness"},
		Scenarios:  []string{"Rest", "Work/Study", "Creativity", "Meditation", "Socializing", "Walk"},
		Descriptors: []string{
			"Floral", "Fruity", "Honey", "Nutty", "Woody", "Earthy", "Smoky",
			"Spicy", "Herbal", "Creamy", "Mineral", "Grassy", "Sweet",
		},
		Aftertaste: []string{
			"Sweet", "Fruity", "Floral", "Citrus", "Confectionery", "Bread", "Woody",
			"Spicy", "Bitter", "Berry", "Dried fruit", "Mineral", "Sour",
		},
	}
}

// Merge fills empty lists of v from def
func (v Vocabulary) Merge(def Vocabulary) Vocabulary {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return Vocabulary{
		Categories:  pick(v.Categories, def.Categories),
		Bodies:      pick(v.Bodies, def.Bodies),
		Effects:     pick(v.Effects, def.Effects),
		Scenarios:   pick(v.Scenarios, def.Scenarios),
		Descriptors: pick(v.Descriptors, def.Descriptors),
		Aftertaste:  pick(v.Aftertaste, def.Aftertaste),
	}
}

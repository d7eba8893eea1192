// internal/models/mockup.go
package models

import "time"

type Mode string

const (
	ModeAuto          Mode = "auto"
	ModeRemoteEditor  Mode = "remoteEditor"
	ModeLocalDocument Mode = "localDocument"
)

// ParseMode maps an empty string to ModeAuto and rejects unknown modes.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, true
	case ModeRemoteEditor, ModeLocalDocument:
		return Mode(s), true
	default:
		return "", false
	}
}

type TemplateKind string

const (
	TemplateKindLayeredDocument TemplateKind = "layeredDocument"
	TemplateKindFlatImage       TemplateKind = "flatImage"
	TemplateKindNone            TemplateKind = "none"
)

type TemplateSource string

const (
	TemplateSourceLocal        TemplateSource = "local"
	TemplateSourceLocalDefault TemplateSource = "localDefault"
	TemplateSourceRemote       TemplateSource = "remote"
	TemplateSourceNone         TemplateSource = "none"
)

type Strategy string

const (
	StrategyRemoteEditor  Strategy = "remoteEditor"
	StrategyLocalDocument Strategy = "localDocument"
	StrategyFlat          Strategy = "flat"
	StrategyBasic         Strategy = "basic"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeNotFound Outcome = "notFound"
	OutcomeError    Outcome = "error"
)

// MockupRequest is immutable for the duration of a pipeline run.
type MockupRequest struct {
	DesignID       string `json:"designId"`
	ProductID      string `json:"productId"`
	DesignImageURL string `json:"designImageUrl"`
	Mode           Mode   `json:"mode"`
}

type ResolvedTemplate struct {
	Path   string         `json:"path,omitempty"`
	Kind   TemplateKind   `json:"kind"`
	Source TemplateSource `json:"source"`
}

// Found reports whether a usable template file was resolved.
func (t ResolvedTemplate) Found() bool {
	return t.Kind != TemplateKindNone && t.Path != ""
}

// NoTemplate is the resolution result when nothing usable exists.
var NoTemplate = ResolvedTemplate{Kind: TemplateKindNone, Source: TemplateSourceNone}

// CompositionAttempt is diagnostic only; nothing downstream branches on it.
type CompositionAttempt struct {
	Strategy           Strategy      `json:"strategy"`
	LayerNameCandidate string        `json:"layerNameCandidate,omitempty"`
	Outcome            Outcome       `json:"outcome"`
	Error              string        `json:"error,omitempty"`
	Duration           time.Duration `json:"duration"`
}

// MockupResult hands ownership of OutputImagePath to the caller.
type MockupResult struct {
	OutputImagePath string               `json:"outputImagePath"`
	Filename        string               `json:"filename"`
	StrategyUsed    Strategy             `json:"strategyUsed"`
	FallbackUsed    bool                 `json:"fallbackUsed"`
	Template        ResolvedTemplate     `json:"template"`
	Attempts        []CompositionAttempt `json:"attempts,omitempty"`
}

// ProcessingDetails is the diagnostic block returned to boundary callers.
type ProcessingDetails struct {
	TemplateFound bool         `json:"templateFound" yaml:"templateFound"`
	TemplateType  TemplateKind `json:"templateType" yaml:"templateType"`
	StrategyUsed  Strategy     `json:"strategyUsed,omitempty" yaml:"strategyUsed,omitempty"`
	FallbackUsed  bool         `json:"fallbackUsed" yaml:"fallbackUsed"`
	ErrorMessage  string       `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	Attempts      int          `json:"attempts" yaml:"attempts"`
}

// Details summarises the result for boundary responses.
func (r *MockupResult) Details() ProcessingDetails {
	return ProcessingDetails{
		TemplateFound: r.Template.Found(),
		TemplateType:  r.Template.Kind,
		StrategyUsed:  r.StrategyUsed,
		FallbackUsed:  r.FallbackUsed,
		Attempts:      len(r.Attempts),
	}
}

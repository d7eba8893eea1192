// Package remoteeditor composites designs by driving a browser-hosted image
// editor through its scripting API.
package remoteeditor

// State is a step of a single remote editor attempt.
type State int

const (
	StateLaunching State = iota
	StatePageReady
	StateEditorLoaded
	StateTemplateOpen
	StateDesignOpen
	StateComposited
	StateExported
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateLaunching:    "launching",
	StatePageReady:    "pageReady",
	StateEditorLoaded: "editorLoaded",
	StateTemplateOpen: "templateOpen",
	StateDesignOpen:   "designOpen",
	StateComposited:   "composited",
	StateExported:     "exported",
	StateClosed:       "closed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

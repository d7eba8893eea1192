package remoteeditor

import (
	"context"
	"encoding/json"
)

// Script is a JavaScript function expression evaluated in the editor page.
// Name identifies it in logs.
type Script struct {
	Name string
	JS   string
}

// Session is one isolated browser context with a single page.
type Session interface {
	// Navigate loads url. Relaxed navigation does not wait for the load event.
	Navigate(ctx context.Context, url string, relaxed bool) error
	Reload(ctx context.Context) error
	// Eval calls the script with args and returns its JSON-encoded result.
	Eval(ctx context.Context, script Script, args ...interface{}) (json.RawMessage, error)
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

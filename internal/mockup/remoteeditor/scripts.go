package remoteeditor

import (
	"embed"
	"strings"

	"mockup-workers/internal/mockup/layers"
)

//go:embed scripts/*.js
var scriptFS embed.FS

func mustScript(name string) Script {
	b, err := scriptFS.ReadFile("scripts/" + name + ".js")
	if err != nil {
		panic(err)
	}
	return Script{Name: name, JS: strings.TrimSpace(string(b))}
}

var (
	scriptReady      = mustScript("ready")
	scriptOpen       = mustScript("open")
	scriptState      = mustScript("state")
	scriptCopyDesign = mustScript("copy_design")
	scriptExport     = mustScript("export")
	scriptPaste      = withLocator(mustScript("paste"))
)

// withLocator wraps a two-argument script so the layer locator is in scope.
func withLocator(s Script) Script {
	var b strings.Builder
	b.WriteString("(api, candidate) => {\n")
	b.WriteString(layers.LocateScript)
	b.WriteString("\nreturn (")
	b.WriteString(s.JS)
	b.WriteString(")(api, candidate);\n}")
	return Script{Name: s.Name, JS: b.String()}
}

type docState struct {
	Documents int `json:"documents"`
	Layers    int `json:"layers"`
}

type pasteResult struct {
	Found bool   `json:"found"`
	Name  string `json:"name"`
}

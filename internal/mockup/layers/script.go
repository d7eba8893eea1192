package layers

import _ "embed"

// LocateScript defines __mockupLocateLayer(container, candidate) for injection
// into the remote editor page. It mirrors Find.
//
//go:embed locate_layer.js
var LocateScript string

// LocateFunctionName is the global the script defines.
const LocateFunctionName = "__mockupLocateLayer"

//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"strings"
	"syscall/js"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/indexeddb"

	"github.com/kittclouds/gofeat/pkg/featchart"
	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// Version info
const Version = "0.1.0"

// grammarDir holds saved grammars inside the IndexedDB file system.
const grammarDir = "grammars"

// Global state
var parser *featchart.Parser
var grammarFS hackpadfs.FS

func main() {
	println("[GoFeat] WASM Ready v" + Version)

	// Register exports
	js.Global().Set("GoFeat", js.ValueOf(map[string]interface{}{
		"version":       js.FuncOf(getVersion),
		"unify":         js.FuncOf(unify),
		"subsumes":      js.FuncOf(subsumes),
		"format":        js.FuncOf(format),
		"useGrammar":    js.FuncOf(useGrammar),
		"parseSentence": js.FuncOf(parseSentence),
		// IndexedDB grammar storage
		"saveGrammar": js.FuncOf(saveGrammar),
		"loadGrammar": js.FuncOf(loadGrammar),
	}))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// unify: [fs1 string, fs2 string]
// Returns {"result": "...", "bindings": "..."} or {"result": null} on failure.
func unify(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("unify requires 2 args: fs1 (string), fs2 (string)")
	}
	a, err := featstruct.Parse(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	b, err := featstruct.Parse(args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}

	bindings := new(featstruct.Bindings)
	result, err := a.Unify(b, bindings)
	if err != nil {
		return errorResult(err.Error())
	}
	response := map[string]interface{}{"result": nil}
	if result != nil {
		response["result"] = result.String()
		response["bindings"] = bindings.String()
	}
	return jsonResult(response)
}

// subsumes: [fs1 string, fs2 string]
func subsumes(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("subsumes requires 2 args: fs1 (string), fs2 (string)")
	}
	a, err := featstruct.Parse(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	b, err := featstruct.Parse(args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	ok, err := a.Subsumes(b)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]interface{}{"subsumes": ok})
}

// format: [fs string, matrix bool?]
// Returns the canonical one-line form, or the matrix form when matrix is true.
func format(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("format requires 1 arg: fs (string)")
	}
	fs, err := featstruct.Parse(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	if len(args) > 1 && args[1].Truthy() {
		return jsonResult(map[string]interface{}{"text": fs.Matrix()})
	}
	return jsonResult(map[string]interface{}{"text": fs.String()})
}

// useGrammar: [text string]
// Installs a grammar without saving it.
func useGrammar(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("useGrammar requires 1 arg: text (string)")
	}
	if err := install(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("grammar installed")
}

func install(text string) error {
	g, lex, err := featchart.ParseGrammar(text)
	if err != nil {
		return err
	}
	parser = featchart.NewParser(g, lex)
	return nil
}

// parseSentence: [text string]
// Returns {"trees": [...], "timing_us": n}.
func parseSentence(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("parseSentence requires 1 arg: text (string)")
	}
	if parser == nil {
		return errorResult("no grammar installed")
	}

	start := time.Now()
	trees, err := parser.ParseSentence(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	out := make([]string, len(trees))
	for i, t := range trees {
		out[i] = t.String()
	}
	return jsonResult(map[string]interface{}{
		"trees":     out,
		"timing_us": time.Since(start).Microseconds(),
	})
}

// openGrammarFS lazily opens the IndexedDB-backed file system.
func openGrammarFS() (hackpadfs.FS, error) {
	if grammarFS != nil {
		return grammarFS, nil
	}
	fs, err := indexeddb.NewFS(context.Background(), "gofeat", indexeddb.Options{})
	if err != nil {
		return nil, err
	}
	if err := hackpadfs.MkdirAll(fs, grammarDir, 0755); err != nil {
		return nil, err
	}
	grammarFS = fs
	return fs, nil
}

func grammarPath(name string) string {
	return grammarDir + "/" + strings.ReplaceAll(name, "/", "_") + ".fcfg"
}

// saveGrammar: [name string, text string]
// Checks the grammar, installs it and persists it to IndexedDB.
func saveGrammar(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("saveGrammar requires 2 args: name (string), text (string)")
	}
	text := args[1].String()
	if err := install(text); err != nil {
		return errorResult(err.Error())
	}
	fs, err := openGrammarFS()
	if err != nil {
		return errorResult("failed to create idb fs: " + err.Error())
	}
	if err := hackpadfs.WriteFullFile(fs, grammarPath(args[0].String()), []byte(text), 0644); err != nil {
		return errorResult("failed to save grammar: " + err.Error())
	}
	return successResult("grammar saved")
}

// loadGrammar: [name string]
// Reads a saved grammar from IndexedDB and installs it.
func loadGrammar(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("loadGrammar requires 1 arg: name (string)")
	}
	fs, err := openGrammarFS()
	if err != nil {
		return errorResult("failed to create idb fs: " + err.Error())
	}
	g, lex, err := featchart.LoadGrammar(fs, grammarPath(args[0].String()))
	if err != nil {
		return errorResult("failed to load grammar: " + err.Error())
	}
	parser = featchart.NewParser(g, lex)
	return successResult("grammar loaded")
}

// Helper: Marshal a response map
func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

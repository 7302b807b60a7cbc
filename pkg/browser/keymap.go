// pkg/browser/keymap.go
package browser

import "unicode"

// keyDefinition describes one physical key of the US layout: the DOM key
// value, the physical code, the legacy keyCode, the text it produces, and its
// shifted variants.
type keyDefinition struct {
	Key          string
	ShiftKey     string
	Code         string
	KeyCode      int64
	ShiftKeyCode int64
	Text         string
	ShiftText    string
	Location     int64
}

// keyDefinitions maps key values ("a", "Enter", "$") to their definitions.
// Letters and digits are generated in init; the literal entries cover control,
// navigation and punctuation keys.
var keyDefinitions = map[string]keyDefinition{
	"Enter":      {Key: "Enter", Code: "Enter", KeyCode: 13, Text: "\r"},
	"Tab":        {Key: "Tab", Code: "Tab", KeyCode: 9},
	"Backspace":  {Key: "Backspace", Code: "Backspace", KeyCode: 8},
	"Delete":     {Key: "Delete", Code: "Delete", KeyCode: 46},
	"Escape":     {Key: "Escape", Code: "Escape", KeyCode: 27},
	"Insert":     {Key: "Insert", Code: "Insert", KeyCode: 45},
	"CapsLock":   {Key: "CapsLock", Code: "CapsLock", KeyCode: 20},
	"ArrowLeft":  {Key: "ArrowLeft", Code: "ArrowLeft", KeyCode: 37},
	"ArrowUp":    {Key: "ArrowUp", Code: "ArrowUp", KeyCode: 38},
	"ArrowRight": {Key: "ArrowRight", Code: "ArrowRight", KeyCode: 39},
	"ArrowDown":  {Key: "ArrowDown", Code: "ArrowDown", KeyCode: 40},
	"Home":       {Key: "Home", Code: "Home", KeyCode: 36},
	"End":        {Key: "End", Code: "End", KeyCode: 35},
	"PageUp":     {Key: "PageUp", Code: "PageUp", KeyCode: 33},
	"PageDown":   {Key: "PageDown", Code: "PageDown", KeyCode: 34},
	"Shift":      {Key: "Shift", Code: "ShiftLeft", KeyCode: 16, Location: 1},
	"Control":    {Key: "Control", Code: "ControlLeft", KeyCode: 17, Location: 1},
	"Alt":        {Key: "Alt", Code: "AltLeft", KeyCode: 18, Location: 1},
	"Meta":       {Key: "Meta", Code: "MetaLeft", KeyCode: 91, Location: 1},
	" ":          {Key: " ", Code: "Space", KeyCode: 32, Text: " "},
	"Space":      {Key: " ", Code: "Space", KeyCode: 32, Text: " "},

	";":  {Key: ";", ShiftKey: ":", Code: "Semicolon", KeyCode: 186, Text: ";", ShiftText: ":"},
	"=":  {Key: "=", ShiftKey: "+", Code: "Equal", KeyCode: 187, Text: "=", ShiftText: "+"},
	",":  {Key: ",", ShiftKey: "<", Code: "Comma", KeyCode: 188, Text: ",", ShiftText: "<"},
	"-":  {Key: "-", ShiftKey: "_", Code: "Minus", KeyCode: 189, Text: "-", ShiftText: "_"},
	".":  {Key: ".", ShiftKey: ">", Code: "Period", KeyCode: 190, Text: ".", ShiftText: ">"},
	"/":  {Key: "/", ShiftKey: "?", Code: "Slash", KeyCode: 191, Text: "/", ShiftText: "?"},
	"`":  {Key: "`", ShiftKey: "~", Code: "Backquote", KeyCode: 192, Text: "`", ShiftText: "~"},
	"[":  {Key: "[", ShiftKey: "{", Code: "BracketLeft", KeyCode: 219, Text: "[", ShiftText: "{"},
	"\\": {Key: "\\", ShiftKey: "|", Code: "Backslash", KeyCode: 220, Text: "\\", ShiftText: "|"},
	"]":  {Key: "]", ShiftKey: "}", Code: "BracketRight", KeyCode: 221, Text: "]", ShiftText: "}"},
	"'":  {Key: "'", ShiftKey: "\"", Code: "Quote", KeyCode: 222, Text: "'", ShiftText: "\""},
}

// digitShift maps each digit to its shifted symbol on the US layout.
var digitShift = map[rune]string{
	'1': "!", '2': "@", '3': "#", '4': "$", '5': "%",
	'6': "^", '7': "&", '8': "*", '9': "(", '0': ")",
}

// shiftedKeys maps produced shifted characters back to the base definition,
// so typing 'A' or '$' finds the right physical key.
var shiftedKeys = map[string]keyDefinition{}

func init() {
	for r := 'a'; r <= 'z'; r++ {
		upper := string(unicode.ToUpper(r))
		def := keyDefinition{
			Key:       string(r),
			ShiftKey:  upper,
			Code:      "Key" + upper,
			KeyCode:   int64(unicode.ToUpper(r)),
			Text:      string(r),
			ShiftText: upper,
		}
		keyDefinitions[string(r)] = def
	}
	for r := '0'; r <= '9'; r++ {
		def := keyDefinition{
			Key:       string(r),
			ShiftKey:  digitShift[r],
			Code:      "Digit" + string(r),
			KeyCode:   int64(r),
			Text:      string(r),
			ShiftText: digitShift[r],
		}
		keyDefinitions[string(r)] = def
	}

	for _, def := range keyDefinitions {
		if def.ShiftKey != "" {
			shiftedKeys[def.ShiftKey] = def
		}
	}
}

// lookupKey finds the definition for a key value. Shifted characters resolve
// to their base key with needsShift set.
func lookupKey(key string) (def keyDefinition, needsShift, ok bool) {
	if d, found := keyDefinitions[key]; found {
		return d, false, true
	}
	if d, found := shiftedKeys[key]; found {
		return d, true, true
	}
	return keyDefinition{}, false, false
}

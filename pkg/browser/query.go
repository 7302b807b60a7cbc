// pkg/browser/query.go
package browser

import (
	"fmt"
	"strings"
)

// selectorEngine identifies how a selector body is evaluated in the page.
type selectorEngine string

const (
	engineCSS   selectorEngine = "css"
	engineXPath selectorEngine = "xpath"
	engineText  selectorEngine = "text"
)

// parsedSelector is a selector split into its engine and body.
type parsedSelector struct {
	Engine selectorEngine
	Body   string
	// Source is the selector as the caller wrote it, for error messages.
	Source string
}

// parseSelector splits a selector into engine and body. An explicit
// "engine=" prefix wins; selectors starting with "/", "//" or "(" are treated
// as XPath; everything else is CSS.
func parseSelector(selector string) (parsedSelector, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return parsedSelector{}, fmt.Errorf("selector is empty")
	}

	for _, engine := range []selectorEngine{engineCSS, engineXPath, engineText} {
		prefix := string(engine) + "="
		if strings.HasPrefix(s, prefix) {
			body := strings.TrimSpace(strings.TrimPrefix(s, prefix))
			if body == "" {
				return parsedSelector{}, fmt.Errorf("selector %q has an empty body", selector)
			}
			return parsedSelector{Engine: engine, Body: body, Source: selector}, nil
		}
	}

	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return parsedSelector{Engine: engineXPath, Body: s, Source: selector}, nil
	}
	return parsedSelector{Engine: engineCSS, Body: s, Source: selector}, nil
}

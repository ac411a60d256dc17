package extract

import (
	"regexp"
	"strings"
)

var tomlSectionRe = regexp.MustCompile(`(?m)^\s*\[[A-Za-z0-9_.\[\]"' -]+\]\s*$`)

// TOML recovers a TOML document from freeform text:
//  1. A ```toml fenced code block (or an untagged ``` fence).
//  2. Else the first top-level "[section]" line through the end of text.
//
// Unlike JSON, TOML has no single balanced-delimiter form, so strategy 2 is
// a line heuristic rather than a depth-counted scan.
func TOML(text string) (string, error) {
	if body, ok := findFence(text, "toml"); ok {
		return body, nil
	}
	if loc := tomlSectionRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[0]:]), nil
	}
	return "", notFound("toml", text)
}

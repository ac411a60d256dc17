package extract

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```([A-Za-z0-9_-]*)[ \t]*\r?\n(.*?)```")

// findFence scans text for fenced code blocks in order and returns the body
// of the first one whose language tag is empty or case-insensitively equal
// to lang, trimmed of surrounding whitespace.
func findFence(text, lang string) (string, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(strings.TrimSpace(m[1]))
		if tag == "" || tag == lang {
			return strings.TrimSpace(m[2]), true
		}
	}
	return "", false
}

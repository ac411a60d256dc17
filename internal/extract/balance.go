package extract

// scanBalanced finds the first occurrence of open at or after the start of
// text and returns the substring from there through its matching close,
// counting nesting depth and skipping characters inside double-quoted
// strings (honoring backslash escapes). ok is false if open never appears
// or never finds a match.
func scanBalanced(text string, open, close byte) (result string, ok bool) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == open {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

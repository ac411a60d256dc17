package extract

// JSON recovers a JSON object or array from freeform text per three
// strategies, in order:
//  1. A ```json fenced code block (or an untagged ``` fence).
//  2. The first balanced {...} object, honoring quoted strings and escapes.
//  3. The first balanced [...] array, same rules.
//
// It is pure and deterministic: the same input always yields the same
// result or the same NotFoundError.
func JSON(text string) (string, error) {
	if body, ok := findFence(text, "json"); ok {
		return body, nil
	}
	if obj, ok := scanBalanced(text, '{', '}'); ok {
		return obj, nil
	}
	if arr, ok := scanBalanced(text, '[', ']'); ok {
		return arr, nil
	}
	return "", notFound("json", text)
}

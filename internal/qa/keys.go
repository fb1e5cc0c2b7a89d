package qa

// Option key handling. Options are addressed by single uppercase letters
// starting at "A"; the key's position is ord-65.

// OptionKey returns the key for a 0-based option index, or "" when the index
// is outside the addressable range.
func OptionKey(index int) string {
	if index < 0 || index >= MaxOptions {
		return ""
	}
	return string(rune('A' + index))
}

// OptionIndex returns the 0-based index for an option key, or -1 when the
// key is not a single letter inside the option list of the given length.
func OptionIndex(key string, optionCount int) int {
	if len(key) != 1 {
		return -1
	}
	c := key[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return -1
	}
	idx := int(c - 'A')
	if idx >= optionCount || idx >= MaxOptions {
		return -1
	}
	return idx
}

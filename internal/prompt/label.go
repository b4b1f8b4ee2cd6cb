package prompt

// IsSafeLabel reports whether a label is safe for use as a version identifier.
// Allows alphanumeric, underscore, and hyphen only.
func IsSafeLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, c := range label {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

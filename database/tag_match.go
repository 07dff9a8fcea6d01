package database

const (
	TagMatchExact     = "exact"
	TagMatchSubstring = "substring"
)

const DefaultTagMatch = TagMatchExact

// IsValidTagMatch checks if a string is a valid tag match mode constant
func IsValidTagMatch(mode string) bool {
	switch mode {
	case TagMatchExact, TagMatchSubstring:
		return true
	default:
		return false
	}
}

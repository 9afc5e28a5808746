package services

// ColorForUrgency returns the display color token for an urgency level.
// Unrecognised levels get the low token.
func ColorForUrgency(level Urgency) string {
	switch level {
	case UrgencyCritical:
		return "red"
	case UrgencyHigh:
		return "orange"
	case UrgencyMedium:
		return "yellow"
	default:
		return "gray"
	}
}

// EmojiForUrgency returns the display icon for an urgency level.
func EmojiForUrgency(level Urgency) string {
	switch level {
	case UrgencyCritical:
		return "🔥"
	case UrgencyHigh:
		return "⚡"
	case UrgencyMedium:
		return "📌"
	default:
		return "📋"
	}
}

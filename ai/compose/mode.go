package compose

// Mode selects which memory tiers participate in a turn.
type Mode string

const (
	// ModeShort uses only the bounded conversation window.
	ModeShort Mode = "short"
	// ModeLong uses only the persistent fact store.
	ModeLong Mode = "long"
	// ModeBoth uses both tiers.
	ModeBoth Mode = "both"
)

// NormalizeMode maps the wire value onto the closed Mode set. Anything
// unrecognized (including empty) defaults to ModeBoth.
func NormalizeMode(raw string) Mode {
	switch Mode(raw) {
	case ModeShort, ModeLong, ModeBoth:
		return Mode(raw)
	default:
		return ModeBoth
	}
}

// IncludesShort reports whether the short-term window participates.
func (m Mode) IncludesShort() bool {
	return m == ModeShort || m == ModeBoth
}

// IncludesLong reports whether the long-term fact store participates.
func (m Mode) IncludesLong() bool {
	return m == ModeLong || m == ModeBoth
}

// longOnlySuffix separates the long-only thread from the regular one so a
// fact-only turn cannot leak unrelated short-term conversation state.
const longOnlySuffix = "_long_only"

// ThreadID derives the conversation thread identity from the owner and the
// memory mode. It is a pure function: repeated calls with the same pair
// always resume the same thread.
func ThreadID(userID string, mode Mode) string {
	if mode == ModeLong {
		return userID + longOnlySuffix
	}
	return userID
}

package room

import "strings"

// NumberedPrefix prefixes every non-reserved room id.
const NumberedPrefix = "room"

// maxSuffixLen bounds the part of a numbered room id after the prefix.
const maxSuffixLen = 16

// ValidID reports whether id is an accepted room identifier: one of the
// reserved names, or NumberedPrefix followed by 1-16 ASCII letters or digits
// (room1, room12, roomSmall).
func ValidID(id string) bool {
	if id == Lobby || id == Sandbox {
		return true
	}
	suffix, ok := strings.CutPrefix(id, NumberedPrefix)
	if !ok || suffix == "" || len(suffix) > maxSuffixLen {
		return false
	}
	for _, c := range suffix {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

package session

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// maxNameRunes bounds the readable part of the session name so the full
// name stays well under screen's socket name limit.
const maxNameRunes = 40

// Name derives the multiplexer session name for an instance. The name is
// deterministic: the same instance always maps to the same session, across
// restarts of this process. A short digest of the raw name is appended so
// two instances whose names sanitize to the same string still get distinct
// sessions.
func Name(instanceName string) string {
	sum := sha256.Sum256([]byte(instanceName))
	return "mc-" + sanitizeSessionName(instanceName) + "-" + hex.EncodeToString(sum[:4])
}

func sanitizeSessionName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			out = append(out, r)
		} else {
			out = append(out, '-')
		}
		if len(out) >= maxNameRunes {
			break
		}
	}
	if len(out) == 0 {
		return "server"
	}
	return string(out)
}

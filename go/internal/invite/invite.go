// Package invite maps session ids to shareable invitation codes and back.
// The code is an opaque deep-link parameter used only to bootstrap the
// guest's join; it carries no state beyond the session id.
package invite

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// prefix distinguishes duel invites from other deep-link parameters.
const prefix = "m"

// Encode turns a session id into a shareable invitation code.
func Encode(sessionID uuid.UUID) string {
	return prefix + base64.RawURLEncoding.EncodeToString(sessionID[:])
}

// Decode resolves an invitation code back to the session id.
func Decode(code string) (uuid.UUID, error) {
	if !strings.HasPrefix(code, prefix) {
		return uuid.Nil, fmt.Errorf("not an invitation code: %q", code)
	}
	raw, err := base64.RawURLEncoding.DecodeString(code[len(prefix):])
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed invitation code: %w", err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed invitation code: %w", err)
	}
	return id, nil
}

// Package bridge provides pure decision logic for the realtime admission
// bridge: event selection, room and user identifier extraction from decoded
// JSON payloads, and the telemetry/rejection value types.
package bridge

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeID converts a decoded JSON value into a usable identifier.
// Strings are trimmed; numbers are rendered without a decimal point when
// integral. Everything else yields "".
func NormalizeID(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// ExtractRoomIDs scans decoded JSON values for room identifiers.
// Recognized shapes: a bare string or number, an array of any recognized
// shape, or an object carrying "roomId", "room" or "rooms" keys ("rooms" is
// scanned recursively). The result preserves first-seen order and is
// de-duplicated.
func ExtractRoomIDs(values ...any) []string {
	var rooms []string
	seen := make(map[string]struct{})

	push := func(candidate any) {
		id := NormalizeID(candidate)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		rooms = append(rooms, id)
	}

	var inspect func(value any)
	inspect = func(value any) {
		switch v := value.(type) {
		case nil:
			return
		case string, float64, int, int64:
			push(v)
		case []any:
			for _, entry := range v {
				inspect(entry)
			}
		case []string:
			for _, entry := range v {
				push(entry)
			}
		case map[string]any:
			if roomID, ok := v["roomId"]; ok {
				push(roomID)
			}
			if room, ok := v["room"]; ok {
				push(room)
			}
			if nested, ok := v["rooms"]; ok {
				inspect(nested)
			}
		}
	}

	for _, value := range values {
		inspect(value)
	}
	return rooms
}

// UserID resolves the identity used for rate limiting: the handshake auth
// payload's userId first, then the query's, then the transport-assigned
// socket ID. The result is never empty as long as fallback is non-empty.
func UserID(auth, query map[string]any, fallback string) string {
	if auth != nil {
		if id := NormalizeID(auth["userId"]); id != "" {
			return id
		}
	}
	if query != nil {
		if id := NormalizeID(query["userId"]); id != "" {
			return id
		}
	}
	return fallback
}

package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID mints a random identifier for one websocket connection,
// threading through lifecycle events and logs.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

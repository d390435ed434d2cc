package kconn

import "github.com/knactor/kafka/kwire"

// writeRequestHeader appends the standard request header: api key, api
// version, correlation ID, client ID, and (for flexible versions) the
// tagged-field terminator. Client ID uses the legacy nullable-string
// encoding even in the flexible header, matching the published protocol
// (only the body switches to compact encodings).
func writeRequestHeader(w *kwire.Writer, apiKey, apiVersion int16, corrID int32, clientID string, flexible bool) {
	w.Int16(apiKey)
	w.Int16(apiVersion)
	w.Int32(corrID)
	id := clientID
	w.String(&id)
	if flexible {
		w.EmptyTags()
	}
}

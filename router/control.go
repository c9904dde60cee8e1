package router

import "github.com/tinylib/msgp/msgp"

// controlPayload is what a RouterSubscribe/RouterUnsubscribe packet
// carries inside the envelope's opaque Payload field: the subscribing
// client's self-reported ID, surfaced on the broker's admin endpoint.
// Data/Fragment payloads stay caller-owned; only this broker-internal
// control payload is the core's own business, so it's the one place
// msgp's low-level append/read primitives are used directly rather
// than generating a full msgp.Encodable/Decodable pair.
type controlPayload struct {
	ClientID string
}

func encodeControl(c controlPayload) []byte {
	var b []byte
	b = msgp.AppendString(b, c.ClientID)
	return b
}

func decodeControl(b []byte) (controlPayload, error) {
	clientID, _, err := msgp.ReadStringBytes(b)
	if err != nil {
		return controlPayload{}, err
	}
	return controlPayload{ClientID: clientID}, nil
}

package amqpserver

import "encoding/json"

// encodeMessageValue encodes a message's decoded value back to wire bytes
// per spec §4.5 ("encoded = utf-8(JSON(message.value))"): every value,
// including a string that fell back from a non-JSON publish body, is
// JSON-marshaled, so a bare string is delivered quoted.
func encodeMessageValue(value any) ([]byte, error) {
	return json.Marshal(value)
}

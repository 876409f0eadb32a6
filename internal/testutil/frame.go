package testutil

import "encoding/binary"

// BuildFrame assembles a full wire frame: the 16-byte header (size,
// request_id, client_id, kind) followed by body. size is computed
// automatically as 16+len(body).
func BuildFrame(requestID, clientID, kind uint32, body []byte) []byte {
	size := uint32(16 + len(body))
	frame := make([]byte, size)
	binary.LittleEndian.PutUint32(frame[0:4], size)
	binary.LittleEndian.PutUint32(frame[4:8], requestID)
	binary.LittleEndian.PutUint32(frame[8:12], clientID)
	binary.LittleEndian.PutUint32(frame[12:16], kind)
	copy(frame[16:], body)
	return frame
}

// FrameRequestID reads the request_id field out of a raw frame previously
// captured from the wire (e.g. inside a testutil.Handler).
func FrameRequestID(frame []byte) uint32 {
	return binary.LittleEndian.Uint32(frame[4:8])
}

// FrameKind reads the kind field out of a raw frame.
func FrameKind(frame []byte) uint32 {
	return binary.LittleEndian.Uint32(frame[12:16])
}

package p2p

import "fmt"

// Envelope is the wire message every stream exchange is wrapped in:
// a channel/kind tag, the request ID it correlates to, and an opaque
// SCALE-encoded payload (types.EncodeHeader/EncodeBody and friends).
// It is marshaled with gogo/protobuf's reflection-based Marshal, the
// same mechanism generated code produces for a message this simple.
type Envelope struct {
	ChannelID uint32 `protobuf:"varint,1,opt,name=channel_id,json=channelId"`
	Kind      uint32 `protobuf:"varint,2,opt,name=kind"`
	RequestID uint64 `protobuf:"varint,3,opt,name=request_id,json=requestId"`
	Payload   []byte `protobuf:"bytes,4,opt,name=payload"`
}

func (m *Envelope) Reset() { *m = Envelope{} }
func (m *Envelope) String() string {
	return fmt.Sprintf("Envelope{channel=%d kind=%d req=%d payload_len=%d}", m.ChannelID, m.Kind, m.RequestID, len(m.Payload))
}
func (m *Envelope) ProtoMessage() {}

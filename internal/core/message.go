package core

// ChannelMessage is the unit of fan-out: one instance is constructed per
// directive and shared read-only by every recipient of the delivery.
type ChannelMessage struct {
	Room    string
	From    *string
	Message string
}

// NewChannelMessage builds a message addressed to a room. from may be empty
// for system notices without a sender.
func NewChannelMessage(room, from, message string) *ChannelMessage {
	msg := &ChannelMessage{Room: room, Message: message}
	if from != "" {
		msg.From = &from
	}
	return msg
}

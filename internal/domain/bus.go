package domain

// MessageBus carries inbound messages from channels to the dispatcher.
// Responses never travel through the bus; each InboundMessage carries its
// own Conversation.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	Close()
}

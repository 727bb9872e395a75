package client

import "strings"

// Message is one inbound bus frame.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler consumes inbound frames on the bus goroutine. It must not block.
type Handler func(msg Message)

// Bus is the message transport the platform talks through. The concrete
// broker protocol is not the runtime's concern; WSBus is the bundled
// implementation and anything with the same topic semantics plugs in.
type Bus interface {
	// Publish sends payload, JSON-encoded, to a topic.
	Publish(topic string, payload any) error

	// Subscribe registers interest in a topic filter. The # wildcard in
	// the last segment matches any remainder.
	Subscribe(filter string) error

	// SetHandler installs the inbound frame handler. Must be called
	// before Loop.
	SetHandler(h Handler)

	// Loop blocks reading frames until Disconnect or a transport error.
	Loop() error

	// Disconnect closes the transport, releasing Loop.
	Disconnect() error
}

// MatchTopic reports whether a topic matches a filter with MQTT-style
// wildcards: + matches one segment, # matches the rest.
func MatchTopic(filter, topic string) bool {
	fparts := strings.Split(filter, "/")
	tparts := strings.Split(topic, "/")

	for i, fp := range fparts {
		if fp == "#" {
			return true
		}
		if i >= len(tparts) {
			return false
		}
		if fp != "+" && fp != tparts[i] {
			return false
		}
	}
	return len(fparts) == len(tparts)
}

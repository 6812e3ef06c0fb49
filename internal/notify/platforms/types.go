package platforms

import "context"

type MessageKind int

const (
	KindPost MessageKind = iota
	KindTopic
)

// Message is one outbound chat operation. KindPost creates a message in
// ChannelID and, when React is set, reacts to it. KindTopic replaces the
// channel topic with Content.
type Message struct {
	Kind      MessageKind
	ChannelID string
	Content   string
	React     string
}

type Adapter interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

package messaging

import "context"

// IService delivers a text message to the on-call channel.
type IService interface {
	Send(ctx context.Context, text string) error
}

package broadcast

import (
	"context"
	"net/http"
)

// IService pushes JSON messages to every connected websocket client.
type IService interface {
	Run(ctx context.Context)
	Handler() http.Handler
	Broadcast(payload interface{})
	ClientCount() int
}

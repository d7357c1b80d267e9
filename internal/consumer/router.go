package consumer

import "context"

// Router dispatches messages to a handler registered for their event type.
// Messages with no registered handler are acknowledged and dropped.
type Router struct {
	routes map[string]Handler
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Register binds a handler to an event type.
func (r *Router) Register(eventType string, handler Handler) *Router {
	r.routes[eventType] = handler
	return r
}

// Handle implements Handler.
func (r *Router) Handle(ctx context.Context, msg Message) error {
	handler, ok := r.routes[msg.EventType]
	if !ok {
		recordUnrouted(msg)
		return nil
	}
	return handler.Handle(ctx, msg)
}

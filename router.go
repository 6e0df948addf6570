package openseastream

import "sync"

// Router dispatches decoded events to handlers registered per event kind.
// The feed carries a target's full event stream, so this is the supported
// way to filter client-side.
type Router struct {
	mu       sync.RWMutex
	handlers map[EventType][]func(StreamEvent) error
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[EventType][]func(StreamEvent) error)}
}

// On registers a handler for one event kind. Handlers registered under
// EventAll observe every decoded event.
func (r *Router) On(event EventType, handler func(StreamEvent) error) {
	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], handler)
	r.mu.Unlock()
}

// Route feeds one decoded event through the matching handlers, wildcard
// handlers last. The first handler error stops dispatch for that event and
// is returned.
func (r *Router) Route(ev StreamEvent) error {
	r.mu.RLock()
	handlers := make([]func(StreamEvent) error, 0, len(r.handlers[ev.EventType])+len(r.handlers[EventAll]))
	handlers = append(handlers, r.handlers[ev.EventType]...)
	handlers = append(handlers, r.handlers[EventAll]...)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ev); err != nil {
			return err
		}
	}
	return nil
}

// Typed registrations for each event kind.

func (r *Router) OnItemListed(h func(ItemListed) error) {
	r.On(EventItemListed, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemListed); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemSold(h func(ItemSold) error) {
	r.On(EventItemSold, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemSold); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemCancelled(h func(ItemCancelled) error) {
	r.On(EventItemCancelled, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemCancelled); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemTransferred(h func(ItemTransferred) error) {
	r.On(EventItemTransferred, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemTransferred); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemReceivedOffer(h func(ItemReceivedOffer) error) {
	r.On(EventItemReceivedOffer, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemReceivedOffer); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemReceivedBid(h func(ItemReceivedBid) error) {
	r.On(EventItemReceivedBid, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemReceivedBid); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnCollectionOffer(h func(CollectionOffer) error) {
	r.On(EventCollectionOffer, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*CollectionOffer); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnTraitOffer(h func(TraitOffer) error) {
	r.On(EventTraitOffer, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*TraitOffer); ok {
			return h(*p)
		}
		return nil
	})
}

func (r *Router) OnItemMetadataUpdated(h func(ItemMetadataUpdated) error) {
	r.On(EventItemMetadataUpdated, func(ev StreamEvent) error {
		if p, ok := ev.Payload.(*ItemMetadataUpdated); ok {
			return h(*p)
		}
		return nil
	})
}

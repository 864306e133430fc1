package engine

import "sync"

// activeOrders tracks in-flight broker orders, keyed by the per-signal
// client order id so concurrent signals from one strategy never overwrite
// each other's entries.
type activeOrders struct {
	mu     sync.Mutex
	orders map[string]string // client order id -> broker order id
}

func newActiveOrders() *activeOrders {
	return &activeOrders{orders: make(map[string]string)}
}

func (a *activeOrders) set(clientID, orderID string) {
	a.mu.Lock()
	a.orders[clientID] = orderID
	a.mu.Unlock()
}

func (a *activeOrders) remove(clientID string) {
	a.mu.Lock()
	delete(a.orders, clientID)
	a.mu.Unlock()
}

// snapshot copies the current tracking map.
func (a *activeOrders) snapshot() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.orders))
	for k, v := range a.orders {
		out[k] = v
	}
	return out
}

func (a *activeOrders) clear() {
	a.mu.Lock()
	a.orders = make(map[string]string)
	a.mu.Unlock()
}

// Package pool holds the named connection pools shared by the dispatcher
// and the source executors: MQTT broker clients, HTTP request clients and
// HTTP listener subscription sets.
//
// Every pool is an insertion-ordered registry. Looking up the empty pool
// id returns the first configured entry, which keeps single-pool configs
// free of pool_id noise.
package pool

// Registry is an insertion-ordered id→handle map.
type Registry[T any] struct {
	index map[string]int
	list  []T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{index: make(map[string]int)}
}

// Add registers v under id; duplicate ids are rejected.
func (r *Registry[T]) Add(id string, v T) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = len(r.list)
	r.list = append(r.list, v)
	return true
}

// Get resolves id. The empty id resolves to the first-added entry.
func (r *Registry[T]) Get(id string) (T, bool) {
	var zero T
	if id == "" {
		if len(r.list) == 0 {
			return zero, false
		}
		return r.list[0], true
	}
	i, ok := r.index[id]
	if !ok {
		return zero, false
	}
	return r.list[i], true
}

func (r *Registry[T]) Len() int { return len(r.list) }

// All returns the entries in insertion order.
func (r *Registry[T]) All() []T { return r.list }

// Pools aggregates the three registries one run operates on.
type Pools struct {
	Mqtt      *Registry[*MqttClient]
	HTTP      *Registry[*HTTPClient]
	Listeners *Registry[*Listeners]
}

func New() *Pools {
	return &Pools{
		Mqtt:      NewRegistry[*MqttClient](),
		HTTP:      NewRegistry[*HTTPClient](),
		Listeners: NewRegistry[*Listeners](),
	}
}

// Close disconnects every broker client.
func (p *Pools) Close() {
	for _, c := range p.Mqtt.All() {
		c.Close()
	}
}

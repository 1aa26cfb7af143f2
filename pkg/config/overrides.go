package config

import "sync"

// Overrides holds runtime configuration values set through the config
// endpoints. They shadow the loaded file until the process restarts.
type Overrides struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewOverrides() *Overrides {
	return &Overrides{values: map[string]string{}}
}

// Set stores an override for key.
func (o *Overrides) Set(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[key] = value
}

// Get returns the override for key, falling back to def.
func (o *Overrides) Get(key, def string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.values[key]; ok {
		return v
	}
	return def
}

// Remove drops an override, reporting whether it existed.
func (o *Overrides) Remove(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.values[key]
	delete(o.values, key)
	return ok
}

// All returns a copy of the current overrides.
func (o *Overrides) All() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]string, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// Clear removes every override.
func (o *Overrides) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = map[string]string{}
}

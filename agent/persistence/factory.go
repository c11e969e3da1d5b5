package persistence

import "fmt"

// NewSessionStore creates a new SessionStore based on the configuration
func NewSessionStore(config StoreConfig) (ManagedSessionStore, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemorySessionStore(config), nil
	case StoreTypeRedis:
		return NewRedisSessionStore(config)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", config.Type)
	}
}

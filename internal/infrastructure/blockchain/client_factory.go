package blockchain

import (
	"fmt"
	"sync"
)

// ClientFactory manages blockchain clients, one per provider URL
type ClientFactory struct {
	clients map[string]Client
	mu      sync.RWMutex
}

// NewClientFactory creates a new client factory
func NewClientFactory() *ClientFactory {
	return &ClientFactory{
		clients: make(map[string]Client),
	}
}

// GetClient returns a client for the given provider URL.
// If a client already exists for the URL, it returns the cached client.
func (f *ClientFactory) GetClient(providerURL string) (Client, error) {
	f.mu.RLock()
	client, ok := f.clients[providerURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if client, ok := f.clients[providerURL]; ok {
		return client, nil
	}

	newClient, err := NewEVMClient(providerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM client: %w", err)
	}

	f.clients[providerURL] = newClient
	return newClient, nil
}

// RegisterClient injects/overrides the cached client for a provider URL.
// Useful for deterministic unit tests.
func (f *ClientFactory) RegisterClient(providerURL string, client Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[providerURL] = client
}

// Close closes every cached client
func (f *ClientFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, client := range f.clients {
		client.Close()
		delete(f.clients, url)
	}
}

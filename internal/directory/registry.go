// Файл: internal/directory/registry.go
package directory

import (
	"fmt"
	"sync"
)

// Factory собирает клиента каталога под одну интеграцию: каждая
// несёт собственную пару токенов, поэтому провайдеры не разделяются
// между интеграциями.
type Factory func(integrationID uint64, tokens Tokens) (Provider, error)

// RegistryInterface определяет, что должен уметь реестр провайдеров каталога.
type RegistryInterface interface {
	Register(name string, factory Factory) error
	Get(name string) (Factory, error)
}

// Registry - это конкретная реализация нашего хранилища.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex // Для безопасной работы в многопоточной среде
}

func NewRegistry() RegistryInterface {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("провайдер с именем '%s' уже зарегистрирован", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("провайдер с именем '%s' не найден", name)
	}
	return factory, nil
}

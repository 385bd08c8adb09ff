// Package registry is a name -> factory lookup for the two things a host
// typically wants to swap by name rather than wire by hand: Observer
// implementations (progress UI, logging, no-op) and Catalog loaders (TOML
// file, embedded table, generated). The sync.RWMutex-guarded map shape
// follows the teacher's own factory registries.
package registry

import (
	"sync"

	"github.com/lixenwraith/wfc3d/catalog"
	"github.com/lixenwraith/wfc3d/collapse"
)

// ObserverFactory builds a fresh collapse.Observer.
type ObserverFactory func() collapse.Observer

// CatalogLoaderFactory builds a fresh catalog.Catalog from a source string
// (a file path, typically).
type CatalogLoaderFactory func(source string) (*catalog.Catalog, error)

var (
	observersMu sync.RWMutex
	observers   = make(map[string]ObserverFactory)

	loadersMu sync.RWMutex
	loaders   = make(map[string]CatalogLoaderFactory)
)

// RegisterObserver adds an Observer factory by name.
func RegisterObserver(name string, factory ObserverFactory) {
	observersMu.Lock()
	defer observersMu.Unlock()
	observers[name] = factory
}

// GetObserver retrieves an Observer factory by name.
func GetObserver(name string) (ObserverFactory, bool) {
	observersMu.RLock()
	defer observersMu.RUnlock()
	f, ok := observers[name]
	return f, ok
}

// ObserverNames returns every registered Observer factory name.
func ObserverNames() []string {
	observersMu.RLock()
	defer observersMu.RUnlock()
	names := make([]string, 0, len(observers))
	for name := range observers {
		names = append(names, name)
	}
	return names
}

// RegisterCatalogLoader adds a Catalog loader factory by name.
func RegisterCatalogLoader(name string, factory CatalogLoaderFactory) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[name] = factory
}

// GetCatalogLoader retrieves a Catalog loader factory by name.
func GetCatalogLoader(name string) (CatalogLoaderFactory, bool) {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	f, ok := loaders[name]
	return f, ok
}

// CatalogLoaderNames returns every registered Catalog loader factory name.
func CatalogLoaderNames() []string {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	return names
}

package tinkfpe

import (
	"sync"

	"github.com/google/tink/go/core/registry"
)

var keyManagerOnce sync.Once

// getOrRegisterKeyManager registers the package KeyManager with Tink's
// global registry on first call and is a no-op afterward; safe to call
// from multiple test files.
func getOrRegisterKeyManager() (*KeyManager, error) {
	var regErr error
	keyManagerOnce.Do(func() {
		if _, err := registry.GetKeyManager(FPEKeyTypeURL); err != nil {
			regErr = registry.RegisterKeyManager(NewKeyManager())
		}
	})
	return NewKeyManager(), regErr
}

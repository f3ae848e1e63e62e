package fm

import (
	"context"
	"fmt"
	"sync"

	"github.com/logandonley/typecore/internal/logger"
	"github.com/logandonley/typecore/internal/platform"
)

// Activator moves catalog records between Inactive and Active. The catalog
// flag changes only after the bridge confirmed the OS call, and toggles on
// the same identity are serialized.
type Activator struct {
	catalog Catalog
	bridge  platform.Bridge
	cache   *Cache
	log     logger.Logger

	locksMu sync.Mutex
	locks   map[string]*identityLock
}

// identityLock is dropped from the map once no caller holds or waits for it.
type identityLock struct {
	mu   sync.Mutex
	refs int
}

func NewActivator(catalog Catalog, bridge platform.Bridge, cache *Cache, log logger.Logger) *Activator {
	if log == nil {
		log = logger.Nop()
	}
	return &Activator{
		catalog: catalog,
		bridge:  bridge,
		cache:   cache,
		log:     log.Named("activation"),
		locks:   make(map[string]*identityLock),
	}
}

// Toggle flips the activation state of identity.
func (a *Activator) Toggle(ctx context.Context, identity string) (FontRecord, error) {
	return a.transition(ctx, identity, nil)
}

// Activate registers identity with the OS unless it is already active.
func (a *Activator) Activate(ctx context.Context, identity string) (FontRecord, error) {
	want := true
	return a.transition(ctx, identity, &want)
}

// Deactivate unregisters identity unless it is already inactive.
func (a *Activator) Deactivate(ctx context.Context, identity string) (FontRecord, error) {
	want := false
	return a.transition(ctx, identity, &want)
}

func (a *Activator) lock(identity string) func() {
	a.locksMu.Lock()
	l, ok := a.locks[identity]
	if !ok {
		l = &identityLock{}
		a.locks[identity] = l
	}
	l.refs++
	a.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, identity)
		}
		a.locksMu.Unlock()
	}
}

func (a *Activator) transition(ctx context.Context, identity string, want *bool) (FontRecord, error) {
	unlock := a.lock(identity)
	defer unlock()

	rec, err := a.catalog.Get(ctx, identity)
	if err != nil {
		return FontRecord{}, err
	}

	target := !rec.Activated
	if want != nil {
		target = *want
	}
	if target == rec.Activated {
		a.log.Debug("activation state unchanged", logger.Identity(identity), logger.Bool("activated", target))
		return rec, nil
	}

	path, err := a.localPath(ctx, rec, target)
	if err != nil {
		return rec, &ActivationError{Identity: identity, Activate: target, Err: err}
	}

	if err := a.apply(path, target); err != nil {
		a.log.Warn("bridge rejected activation change",
			logger.Identity(identity),
			logger.Bool("activate", target),
			logger.Error(err))
		return rec, &ActivationError{Identity: identity, Activate: target, Err: err}
	}

	if err := a.catalog.SetActivated(ctx, identity, target); err != nil {
		// the OS changed but the catalog did not; undo the OS side
		if undoErr := a.apply(path, !target); undoErr != nil {
			a.log.Error("failed to undo activation change",
				logger.Identity(identity),
				logger.Error(undoErr))
		}
		return rec, fmt.Errorf("recording activation state: %w", err)
	}

	rec.Activated = target
	a.log.Info("activation state changed", logger.Identity(identity), logger.Bool("activated", target))
	return rec, nil
}

func (a *Activator) apply(path string, activate bool) error {
	if activate {
		return a.bridge.Register(path)
	}
	return a.bridge.Unregister(path)
}

// localPath resolves the file the bridge must see. Remote records are
// materialized before activation; the bridge never receives a virtual
// identity. Deactivation only needs the path the font was registered under,
// so it never downloads.
func (a *Activator) localPath(ctx context.Context, rec FontRecord, activate bool) (string, error) {
	if !rec.IsRemote() {
		return rec.Identity, nil
	}
	if a.cache == nil {
		return "", fmt.Errorf("%w: %s", ErrRemoteNotMaterialized, rec.Identity)
	}
	if !activate {
		return a.cache.PathFor(rec.Family), nil
	}
	return a.cache.Materialize(ctx, rec.RemoteURL, rec.Family)
}

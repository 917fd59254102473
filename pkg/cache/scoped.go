package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several projects can
// share one Redis instance without colliding.
//
//	keyer := cache.NewScopedKeyer(nil, "game-ui:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner uses the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PlanKey generates a prefixed plan key.
func (k *ScopedKeyer) PlanKey(catalogDigest string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(catalogDigest, opts)
}

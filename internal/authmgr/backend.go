package authmgr

// Backend is an internal-or-external credential source consulted by
// login(). Composite deployments chain several behind forceInternal.
type Backend interface {
	Verify(user, passwd string) (bool, error)
}

// CompositeBackend tries forceInternal users against internal only,
// and every other user against external, falling back to internal if
// external rejects them.
type CompositeBackend struct {
	internal      Backend
	external      Backend
	forceInternal map[string]struct{}
}

// NewCompositeBackend builds a composite backend. forceInternal lists
// users who must never be checked against the external source
// (typically local break-glass accounts).
func NewCompositeBackend(internal, external Backend, forceInternal []string) *CompositeBackend {
	set := make(map[string]struct{}, len(forceInternal))
	for _, u := range forceInternal {
		set[u] = struct{}{}
	}
	return &CompositeBackend{internal: internal, external: external, forceInternal: set}
}

func (c *CompositeBackend) Verify(user, passwd string) (bool, error) {
	if _, forced := c.forceInternal[user]; forced || c.external == nil {
		return c.internal.Verify(user, passwd)
	}

	ok, err := c.external.Verify(user, passwd)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return c.internal.Verify(user, passwd)
}

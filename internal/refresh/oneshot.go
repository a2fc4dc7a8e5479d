package refresh

import "sync"

// OneShot holds a value that can be taken exactly once. A later Set
// replaces a value nobody has taken yet.
type OneShot[T any] struct {
	mu    sync.Mutex
	value T
	ok    bool
}

func (o *OneShot[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	o.ok = true
	o.mu.Unlock()
}

// Take returns the pending value and clears it.
func (o *OneShot[T]) Take() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var zero T
	if !o.ok {
		return zero, false
	}
	v := o.value
	o.value = zero
	o.ok = false
	return v, true
}

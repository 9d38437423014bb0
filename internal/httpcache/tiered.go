package httpcache

import "errors"

// Tiered checks memory first and falls back to disk, promoting disk hits.
// Writes go to every tier.
type Tiered struct {
	memory Store
	disk   Store
}

// NewTiered combines a memory tier with an optional disk tier (nil disables it).
func NewTiered(memory, disk Store) *Tiered {
	return &Tiered{memory: memory, disk: disk}
}

func (t *Tiered) Get(key string) ([]byte, bool, error) {
	if body, ok, _ := t.memory.Get(key); ok {
		return body, true, nil
	}
	if t.disk == nil {
		return nil, false, nil
	}

	body, ok, err := t.disk.Get(key)
	if !ok {
		return nil, false, err
	}
	t.memory.Put(key, body)
	return body, true, err
}

func (t *Tiered) Put(key string, body []byte) error {
	var errs []error
	if err := t.memory.Put(key, body); err != nil {
		errs = append(errs, err)
	}
	if t.disk != nil {
		if err := t.disk.Put(key, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

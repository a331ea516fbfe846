package core

import "fmt"

// Params is a string keyed bag of solver settings. Params values handed to a
// factory are private copies; treat them as read-only.
type Params map[string]any

// Clone returns a shallow copy. Cloning a nil Params yields an empty map.
func (p Params) Clone() Params {
	cp := make(Params, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Without returns a copy of p with key removed.
func (p Params) Without(key string) Params {
	cp := p.Clone()
	delete(cp, key)
	return cp
}

// Float returns the float64 stored under key or def when absent. Integer
// values are converted.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return def, fmt.Errorf("%w: param %q is %T, want number", ErrInvalidConfig, key, v)
	}
}

// Int returns the int stored under key or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return def, fmt.Errorf("%w: param %q is not integral: %g", ErrInvalidConfig, key, n)
		}
		return int(n), nil
	default:
		return def, fmt.Errorf("%w: param %q is %T, want integer", ErrInvalidConfig, key, v)
	}
}

// String returns the string stored under key or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return def, fmt.Errorf("%w: param %q is %T, want string", ErrInvalidConfig, key, v)
	}
	return s, nil
}

// Bool returns the bool stored under key or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return def, fmt.Errorf("%w: param %q is %T, want bool", ErrInvalidConfig, key, v)
	}
	return b, nil
}

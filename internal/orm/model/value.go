package model

// Value reads name from inst as a T. ok is false when the property is missing
// or holds a value of another type.
func Value[T any](inst *Instance, name string) (T, bool) {
	var zero T
	if inst == nil {
		return zero, false
	}
	v, ok := inst.Get(name)
	if !ok || v == nil {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// SetValue assigns a typed value to name
func SetValue[T any](inst *Instance, name string, value T) bool {
	if inst == nil {
		return false
	}
	return inst.Set(name, value)
}

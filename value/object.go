package value

// Object is an insertion-ordered string-keyed mapping to Value, as required
// by the Value Model's Object variant. It is immutable once built: every
// mutator returns a new Object sharing no backing storage with the receiver.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject builds an Object from a slice of key/value pairs, preserving the
// order they are given in. A later duplicate key overwrites the earlier
// value but keeps the earlier key position, matching how a JSON decoder
// folds duplicate object keys.
func NewObject(pairs ...Pair) Object {
	o := Object{values: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		o = o.With(p.Key, p.Val)
	}
	return o
}

// Pair is a key/value pair used to build an Object literal.
type Pair struct {
	Key string
	Val Value
}

// P is shorthand for constructing a Pair.
func P(key string, val Value) Pair { return Pair{Key: key, Val: val} }

// With returns a new Object with key set to val, appended to the key order
// if key is new. Inserting Undefined is rejected by the expression compiler
// before it reaches here (see compiler package); at the data-model level
// With accepts any Value so the invariant can be enforced at the boundary
// that actually knows about "policy produced this", not deep in the model.
func (o Object) With(key string, val Value) Object {
	next := make(map[string]Value, len(o.values)+1)
	for k, v := range o.values {
		next[k] = v
	}
	keys := o.keys
	if _, exists := next[key]; !exists {
		keys = append(append([]string{}, o.keys...), key)
	}
	next[key] = val
	return Object{keys: keys, values: next}
}

// Get returns the value at key, or Undefined if absent.
func (o Object) Get(key string) Value {
	if v, ok := o.values[key]; ok {
		return v
	}
	return Undefined()
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the object's keys in insertion order. The returned slice
// must not be mutated by callers.
func (o Object) Keys() []string { return o.keys }

// Len returns the number of entries.
func (o Object) Len() int { return len(o.keys) }

func (o Object) equal(other Object) bool {
	if len(o.keys) != len(other.keys) {
		return false
	}
	for _, k := range o.keys {
		ov, ok := other.values[k]
		if !ok || !o.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

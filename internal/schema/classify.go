package schema

// Classification is the verdict used by the flattener to decide how a node can be
// exposed as a flag.
type Classification struct {
	IsArray bool
	// IsComplex is true when the node (or, for arrays, its items) has more than one
	// settable leaf, counting through nested objects.
	IsComplex bool
}

func (r *Resolver) Classify(n *Node, t Trail) (Classification, error) {
	eff, err := r.Resolve(n, t)
	if err != nil || eff == nil {
		return Classification{}, err
	}
	if eff.Kind != KindArray {
		n, err := r.SettableCount(eff, t, 2)
		return Classification{IsComplex: n > 1}, err
	}
	c := Classification{IsArray: true}
	if eff.Items != nil {
		items, err := r.Resolve(eff.Items, t.Field("[]"))
		if err != nil {
			return c, err
		}
		n, err := r.SettableCount(items, t.Field("[]"), 2)
		c.IsComplex = n > 1
		return c, err
	}
	return c, nil
}

func (r *Resolver) IsArray(n *Node, t Trail) (bool, error) {
	c, err := r.Classify(n, t)
	return c.IsArray, err
}

func (r *Resolver) IsComplex(n *Node, t Trail) (bool, error) {
	c, err := r.Classify(n, t)
	return c.IsComplex, err
}

// SettableCount counts the settable leaves below an effective node. Scalar, enum and
// array properties count once; object properties contribute their own leaves.
// Read-only properties are ignored. Counting stops once limit is reached and a limit
// of zero or less counts everything.
func (r *Resolver) SettableCount(eff *Node, t Trail, limit int) (int, error) {
	count := 0
	for _, p := range eff.Properties {
		if p.Schema == nil || r.readOnly(p.Schema) {
			continue
		}
		ct := t.Field(p.Name).Through(p.Via...)
		pe, err := r.Resolve(p.Schema, ct)
		if err != nil {
			return count, err
		}
		if pe == nil || pe.ReadOnly {
			continue
		}
		if pe.IsObject() && len(pe.Enum) == 0 {
			rest := 0
			if limit > 0 {
				rest = limit - count
			}
			n, err := r.SettableCount(pe, ct, rest)
			if err != nil {
				return count, err
			}
			count += n
		} else {
			count++
		}
		if limit > 0 && count >= limit {
			break
		}
	}
	return count, nil
}

// Settable returns the non-read-only properties of an effective node in order.
func (r *Resolver) Settable(eff *Node) []Property {
	var out []Property
	for _, p := range eff.Properties {
		if !r.readOnly(p.Schema) {
			out = append(out, p)
		}
	}
	return out
}

// readOnly looks through a single level of reference, enough for the common
// "id: {$ref: ReadOnlyId}" form without resolving the whole chain.
func (r *Resolver) readOnly(n *Node) bool {
	if n == nil {
		return false
	}
	if n.ReadOnly {
		return true
	}
	if n.Ref != "" {
		if target, ok := r.index.Lookup(n.Ref); ok {
			return target.ReadOnly
		}
	}
	for _, m := range n.AllOf {
		if r.readOnly(m) {
			return true
		}
	}
	return false
}

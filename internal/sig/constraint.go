package sig

// Constraint is a partial signature pattern: mask selects the bits that
// are constrained, value carries the required values for those bits.
// The zero Constraint matches every signature.
type Constraint struct {
	Mask  Signature
	Value Signature
}

// WithBit returns a copy of c that additionally requires bit i == b.
// Setting the same bit twice keeps the latest required value.
func (c Constraint) WithBit(i uint8, b bool) Constraint {
	bit := Signature(1) << i
	c.Mask |= bit
	if b {
		c.Value |= bit
	} else {
		c.Value &^= bit
	}
	return c
}

// WithSignature returns a copy of c that additionally requires every bit
// set in s to be set. Used to anchor narrowing at a focus element: the
// facets the focus exhibits stay required for the whole trace.
func (c Constraint) WithSignature(s Signature) Constraint {
	c.Mask |= s
	c.Value |= s
	return c
}

// Matches reports whether s agrees with the constrained bits.
func (c Constraint) Matches(s Signature) bool {
	return s&c.Mask == c.Value&c.Mask
}

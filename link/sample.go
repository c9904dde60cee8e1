package link

// Sample is the zero-copy loan handle returned by Producer.Loan: Ptr
// exposes the reserved cell so a caller can initialize it field-by-field
// in place, and Write stores a value into that cell and publishes it.
// Write takes its argument by value, so it copies T. Go has no destructors,
// so publish-on-drop becomes an explicit Write call instead of a
// scope-exit side effect; a Sample that's never written is simply
// abandoned, which is safe because Head was never advanced to claim
// its slot.
type Sample[T any] struct {
	p     *Producer[T]
	index int64
}

// Loan reserves the next cell for in-place initialization, returning
// cos.ErrFull under the same condition Send would.
func (p *Producer[T]) Loan() (*Sample[T], error) {
	idx, err := p.r.Reserve()
	if err != nil {
		return nil, err
	}
	return &Sample[T]{p: p, index: idx}, nil
}

// Ptr exposes the reserved, uninitialized cell so callers can fill it
// field-by-field instead of constructing a temporary T first.
func (s *Sample[T]) Ptr() *T { return s.p.r.CellPtr(s.index) }

// Write copies value into the reserved cell and publishes it.
func (s *Sample[T]) Write(value T) {
	*s.Ptr() = value
	s.p.r.Publish(s.index)
}

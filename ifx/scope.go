package ifx

// Scope guards remote client call-stack resources for the duration of a
// remote call sequence. Use it with defer:
//
//	scope := ifx.Enter(stmt)
//	defer scope.Close(&err)
//
// If the surrounding function returns a non-nil error, the call stack is
// rewound exactly once before the error propagates.
type Scope struct {
	unwinder Unwinder
	done     bool
}

// Enter opens a scope over u.
func Enter(u Unwinder) *Scope {
	return &Scope{unwinder: u}
}

// Close rewinds the call stack if *errp is non-nil.
func (s *Scope) Close(errp *error) {
	if s.done {
		return
	}
	s.done = true
	if errp != nil && *errp != nil && s.unwinder != nil {
		s.unwinder.RewindCallstack()
	}
}

package bboltx

// Recover recovers from a panic caused by Must().
//
// It is deferred at the top of each store method that manipulates the append
// log, so that bucket and marshaling failures inside a transaction surface
// as regular errors. The error that caused the panic is assigned to *err.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	switch v := recover().(type) {
	case PanicSentinel:
		*err = v.Cause
	case nil:
		return
	default:
		panic(v)
	}
}

// PanicSentinel is a wrapper value that distinguishes panics raised by
// Must() from any other panic, which Recover() re-raises untouched.
type PanicSentinel struct {
	// Cause is the error that caused the panic.
	Cause error
}

// Must panics if err is non-nil.
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

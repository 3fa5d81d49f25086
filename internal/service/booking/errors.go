package booking

// ValidationError marks malformed or out-of-domain input. The boundary
// maps it to a 400-equivalent and never retries it.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

package main

// ExitCodeError wraps an error with a specific process exit code.
//
// Most commands return plain errors and exit with code 1. A conversion that
// ran but reported a failure envelope exits with 2 so scripts can tell it
// apart from usage and configuration errors.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

package service

// ArgumentError reports a body that does not fit the endpoint. It reaches the
// caller as a remote exception of type "TypeError".
type ArgumentError struct {
	Endpoint string
	Err      error
}

func (e *ArgumentError) Error() string {
	return "bad arguments for " + e.Endpoint + ": " + e.Err.Error()
}

func (e *ArgumentError) Unwrap() error { return e.Err }

func (e *ArgumentError) ErrorType() string { return "TypeError" }

package state

// Failure is the persisted form of the error that last tripped the
// breaker. The payload is opaque to the stores; only the message survives
// the round trip, which is what a remote instance can act on anyway.
type Failure struct {
	Message string `msgpack:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// NewFailure captures an application error as a persistable payload. A
// payload that already is a *Failure is kept as-is.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Failure); ok {
		return f
	}
	return &Failure{Message: err.Error()}
}

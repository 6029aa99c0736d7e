package collector

// ErrorClass classifies why a source's collection failed, independent of
// the underlying fetch.ErrorClass (a fetch failure is one possible cause
// among several — a source can also fail at parse or schema time).
type ErrorClass string

const (
	ErrorClassFetch  ErrorClass = "FETCH"
	ErrorClassParse  ErrorClass = "PARSE"
	ErrorClassSchema ErrorClass = "SCHEMA"
)

// Error is the terminal failure recorded against a SOURCE_FAILED result.
type Error struct {
	Class   ErrorClass
	Message string
}

func (e *Error) Error() string {
	return string(e.Class) + ": " + e.Message
}

package seedrpc

import "strings"

// ServerError is an error response returned by a SEED service. The services
// always report name "JSONRPCError" and code -32603; the useful content is
// the message, which is often a multi-line Perl traceback with the real
// message wrapped in _ERROR_ delimiters.
type ServerError struct {
	Name    string
	Code    int
	Message string
	Data    []string
}

func (e *ServerError) Error() string { return e.Message }

// Traceback returns the full multi-line error text from the server.
func (e *ServerError) Traceback() string {
	return strings.Join(e.Data, "\n")
}

// NewServerError extracts the message from a raw server error string. When
// the first line (or the second line after a "JSONRPC error:" marker) is
// wrapped in _ERROR_ delimiters, the wrapped text is the message; otherwise
// the first line is used as is.
func NewServerError(raw string) *ServerError {
	e := &ServerError{Name: "JSONRPCError", Code: -32603}
	e.Data = strings.Split(raw, "\n")
	e.Message = e.Data[0]
	if msg, ok := unwrapDelimited(e.Data[0]); ok {
		e.Message = msg
	} else if e.Data[0] == "JSONRPC error:" && len(e.Data) > 1 {
		if msg, ok := unwrapDelimited(e.Data[1]); ok {
			e.Message = msg
		}
	}
	return e
}

const errorDelimiter = "_ERROR_"

func unwrapDelimited(line string) (string, bool) {
	if strings.HasPrefix(line, errorDelimiter) && strings.HasSuffix(line, errorDelimiter) &&
		len(line) >= 2*len(errorDelimiter) {
		return line[len(errorDelimiter) : len(line)-len(errorDelimiter)], true
	}
	return "", false
}

// ObjectNotFoundError is returned when a workspace reference does not
// resolve to an object.
type ObjectNotFoundError struct {
	Message string
	Data    []string
}

func (e *ObjectNotFoundError) Error() string { return e.Message }

// ObjectTypeError is returned when a workspace object has the wrong type for
// the requested operation.
type ObjectTypeError struct {
	Message string
	Data    []string
}

func (e *ObjectTypeError) Error() string { return e.Message }

// DuplicateGapfillError is returned when a gap fill solution already exists
// for the requested media condition.
type DuplicateGapfillError struct {
	Message string
}

func (e *DuplicateGapfillError) Error() string { return e.Message }

// JobError is returned when a job submitted to an app service cannot be
// found or tracked.
type JobError struct {
	Message string
}

func (e *JobError) Error() string { return e.Message }

// AuthenticationError is returned when there is a problem with the
// authentication token.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// Message fragments used by the services to report reference problems. The
// services never say which reference was at fault, so TranslateError attaches
// the references from the request.
var notFoundFragments = []string{
	"Object not found!",
	"Owner not specified in deletion!",
	"does not include at least a top level directory!",
	"Path does not point to folder or object:",
	"User lacks permission to / for requested action!",
	"is not a valid object path!",
}

// TranslateError maps a generic ServerError to a specific error based on the
// message text. Other errors pass through unchanged. references lists the
// workspace references in the request's input parameters, one of which
// caused the problem.
func TranslateError(err error, references ...string) error {
	se, ok := err.(*ServerError)
	if !ok {
		return err
	}
	refText := ""
	if len(references) > 0 {
		refText = `"` + strings.Join(references, `" or "`) + `"`
	}
	for _, fragment := range notFoundFragments {
		if strings.Contains(se.Message, fragment) {
			return &ObjectNotFoundError{
				Message: "an object was not found in workspace: " + refText,
				Data:    se.Data,
			}
		}
	}
	if strings.Contains(se.Message, "No gap filling needed on specified condition") {
		return &DuplicateGapfillError{Message: "gap fill solution already available for specified media"}
	}
	if strings.Contains(se.Message, "does not match specified type") {
		return &ObjectTypeError{Message: se.Message, Data: se.Data}
	}
	return err
}

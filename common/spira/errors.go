package spira

import "fmt"

// ConfigurationError reports settings or record values that make a report
// impossible. Nothing is sent over the network when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "spira configuration error: " + e.Reason
}

// SerializationError reports text that cannot be carried in a JSON body.
type SerializationError struct {
	Field string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("spira serialization error: %s is not valid UTF-8", e.Field)
}

// TransportError reports a failed round trip: either the request never got a
// response (Err is set) or the service answered with a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("POST %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("Spira API returned HTTP %d : %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

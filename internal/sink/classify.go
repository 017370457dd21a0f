package sink

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// Class names a category of write failure.
type Class string

// Write error classes.
const (
	ClassAuth     Class = "auth"
	ClassClosed   Class = "closed"
	ClassNetwork  Class = "network"
	ClassRejected Class = "rejected"
	ClassUnknown  Class = "unknown"
)

// classSentinels maps each class to the sentinel that marks it.
var classSentinels = map[Class]error{
	ClassAuth:     ErrAuth,
	ClassClosed:   ErrClosed,
	ClassNetwork:  ErrNetwork,
	ClassRejected: ErrRejected,
}

// Classes returns every class name, including ClassUnknown, in sorted order.
func Classes() []Class {
	out := []Class{ClassUnknown}
	for c := range classSentinels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClassOf returns the class carried by err.
func ClassOf(err error) Class {
	for _, c := range []Class{ClassAuth, ClassClosed, ClassNetwork, ClassRejected} {
		if errors.Is(err, classSentinels[c]) {
			return c
		}
	}
	return ClassUnknown
}

// Severity decides whether a write failure ends the run.
type Severity int

const (
	// Transient failures are logged and the point is dropped.
	Transient Severity = iota

	// Fatal failures stop the run.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "transient"
}

// Classifier is the decision point between transient and fatal write errors.
type Classifier interface {
	Classify(err error) (Class, Severity)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(err error) (Class, Severity)

// Classify calls f(err).
func (f ClassifierFunc) Classify(err error) (Class, Severity) {
	return f(err)
}

// ClassPolicy treats a configured set of classes as fatal.
type ClassPolicy struct {
	fatal map[Class]bool
}

// NewClassPolicy builds a policy from class names such as
// pipeline.fatal_write_errors. Unknown names are an error.
func NewClassPolicy(names []string) (*ClassPolicy, error) {
	p := &ClassPolicy{fatal: make(map[Class]bool, len(names))}

	valid := make(map[Class]bool)
	for _, c := range Classes() {
		valid[c] = true
	}

	var bad []string
	for _, n := range names {
		c := Class(strings.ToLower(strings.TrimSpace(n)))
		if !valid[c] {
			bad = append(bad, n)
			continue
		}
		p.fatal[c] = true
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("unknown write error classes %q (valid: %v)", bad, Classes())
	}
	return p, nil
}

// Classify returns the class of err and Fatal if the class is configured fatal.
func (p *ClassPolicy) Classify(err error) (Class, Severity) {
	c := ClassOf(err)
	if p.fatal[c] {
		return c, Fatal
	}
	return c, Transient
}

// FatalClasses returns the configured fatal classes in sorted order.
func (p *ClassPolicy) FatalClasses() []Class {
	out := make([]Class, 0, len(p.fatal))
	for c := range p.fatal {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// withClass marks err with the sentinel for class.
func withClass(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// classifyStatus maps an HTTP status to a class sentinel.
// Status 0 means the request never got a response.
func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return withClass(ErrAuth, err)
	case code == 0 || code == http.StatusTooManyRequests || code >= 500:
		return withClass(ErrNetwork, err)
	case code >= 400:
		return withClass(ErrRejected, err)
	default:
		return err
	}
}

// isNetError reports whether err came from the transport.
func isNetError(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr)
}

package collector

import (
	"fmt"
	"strconv"

	"github.com/edgevane/httpmetrics/pkg/apperror"
	"github.com/edgevane/httpmetrics/pkg/lifecycle"
)

// AbsentValue is the placeholder label value used when a dimension has
// nothing to say: unknown label names without an extension, simple
// reasons asked for their error, a response that never got a status.
const AbsentValue = "absent"

// Resolver derives label values from an event record. Unrecognized
// names fall back to the configured extension.
type Resolver struct {
	classifier StatusClassifier
	extension  LabelExtension
}

func NewResolver(cfg *Config, classifier StatusClassifier) *Resolver {
	if classifier == nil {
		classifier = NewStatusClassifier()
	}
	return &Resolver{
		classifier: classifier,
		extension:  cfg.Extension(),
	}
}

// Resolve returns the value of one label for one event. It fails only
// on contract violations: asking for "method" on an event that carries
// no request object.
func (r *Resolver) Resolve(name string, ev *lifecycle.Event) (string, error) {
	switch name {
	case "host":
		return ev.ListenerHost, nil
	case "port":
		return strconv.Itoa(ev.ListenerPort), nil
	case "method":
		if ev.Request == nil {
			return "", fmt.Errorf("%w: label %q needs a request object", apperror.ErrContractViolation, name)
		}
		return ev.Request.Method(), nil
	case "status":
		if ev.Status == 0 {
			return AbsentValue, nil
		}
		return strconv.Itoa(ev.Status), nil
	case "status_class":
		if ev.Status == 0 {
			return AbsentValue, nil
		}
		return r.classifier.Classify(ev.Status), nil
	case "reason":
		// Leading tag for both simple and compound reasons.
		return ev.Reason.Tag, nil
	case "error":
		return errorLabel(ev.Reason), nil
	}

	if r.extension != nil {
		return r.extension.LabelValue(name, ev), nil
	}
	return AbsentValue, nil
}

// Vector resolves a whole schema, preserving order.
func (r *Resolver) Vector(schema []string, ev *lifecycle.Event) ([]string, error) {
	values := make([]string, len(schema))
	for i, name := range schema {
		v, err := r.Resolve(name, ev)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func errorLabel(reason lifecycle.Reason) string {
	switch {
	case reason.Cause == nil:
		return AbsentValue
	case reason.Cause.Parts != nil:
		// Structured cause: its leading tag names the error.
		return reason.Cause.Tag
	case reason.Cause.Tag != "":
		// Bare tag as the second component.
		return reason.Cause.Tag
	default:
		return AbsentValue
	}
}

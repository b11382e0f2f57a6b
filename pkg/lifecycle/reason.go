package lifecycle

// Well-known termination tags. Reasons with any other tag, and all
// compound reasons, count as request errors.
const (
	TagNormal         = "normal"
	TagSwitchProtocol = "switch_protocol"
	TagStop           = "stop"
)

// Reason says why a request ended. A simple reason is a bare tag
// (Cause nil); a compound reason carries a nested cause and optionally
// a stack trace.
type Reason struct {
	Tag   string
	Cause *Cause
	Trace string
}

// Cause is the nested failure detail of a compound reason. When the
// cause itself was structured, Parts holds its trailing components and
// Tag its leading one; a plain cause is a bare Tag with nil Parts.
type Cause struct {
	Tag   string
	Parts []any
}

// Simple builds a bare-tag reason.
func Simple(tag string) Reason {
	return Reason{Tag: tag}
}

// Compound builds a reason with a nested cause and optional trace.
func Compound(tag string, cause *Cause, trace string) Reason {
	return Reason{Tag: tag, Cause: cause, Trace: trace}
}

// IsSimple reports whether the reason is a bare tag.
func (r Reason) IsSimple() bool {
	return r.Cause == nil
}

// Terminated reports whether the reason is a clean termination: a
// simple normal, switch_protocol or stop. Anything else is an error
// from the metrics point of view.
func (r Reason) Terminated() bool {
	if !r.IsSimple() {
		return false
	}
	switch r.Tag {
	case TagNormal, TagSwitchProtocol, TagStop:
		return true
	}
	return false
}

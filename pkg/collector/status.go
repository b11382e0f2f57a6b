package collector

import "strconv"

// StatusClassifier buckets a numeric response status into a class
// string such as "2XX".
type StatusClassifier interface {
	Classify(status int) string
}

type defaultStatusClassifier struct{}

// NewStatusClassifier returns the standard HTTP class bucketing.
func NewStatusClassifier() StatusClassifier {
	return defaultStatusClassifier{}
}

func (defaultStatusClassifier) Classify(status int) string {
	if status < 100 || status > 599 {
		return AbsentValue
	}
	return strconv.Itoa(status/100) + "XX"
}

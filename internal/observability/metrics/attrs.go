package metrics

import "go.opentelemetry.io/otel/attribute"

// allowedLabels is the closed set of metric labels. User identifiers and
// invite values must never become label values.
var allowedLabels = map[attribute.Key]struct{}{
	"kind":    {},
	"result":  {},
	"outcome": {},
	"route":   {},
}

// FilterAttributes drops attributes outside the allow-list and attributes
// with empty values.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabels[attr.Key]; !ok {
			continue
		}
		if attr.Value.AsString() == "" {
			continue
		}
		out = append(out, attr)
	}
	return out
}

package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("user_id", "abc"),
		attribute.String("kind", "code"),
		attribute.String("result", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" {
			t.Fatal("expected user_id to be dropped")
		}
	}
}

func TestFilterAttributesDropsEmptyValues(t *testing.T) {
	attrs := FilterAttributes(attribute.String("kind", ""))
	if len(attrs) != 0 {
		t.Fatalf("expected empty attribute to be dropped, got %d", len(attrs))
	}
}

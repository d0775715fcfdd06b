package observability

import (
	"context"
	"testing"
)

func TestWithFieldsAccumulates(t *testing.T) {
	ctx := context.Background()
	ctx = WithFields(ctx, Field{"template_id", "tpl-1"})
	ctx = WithFields(ctx, Field{"recipient", "0xabc"})

	fields := getObservabilityFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "template_id" || fields[1].Key != "recipient" {
		t.Errorf("unexpected field order: %+v", fields)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent := WithFields(context.Background(), Field{"a", 1})
	_ = WithFields(parent, Field{"b", 2})

	if got := len(getObservabilityFields(parent)); got != 1 {
		t.Errorf("parent context gained fields: %d", got)
	}
}

func TestGetFieldsOnEmptyContext(t *testing.T) {
	if fields := getObservabilityFields(context.Background()); fields != nil {
		t.Errorf("expected nil fields, got %+v", fields)
	}
}

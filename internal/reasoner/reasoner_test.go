package reasoner

import (
	"encoding/json"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/errs"
)

func TestValidate_AcceptsConformingValue(t *testing.T) {
	cache := NewSchemaCache()
	err := Validate(cache, ExecutionResultSchema, json.RawMessage(`{"summary":"done","succeeded":true}`))
	if err != nil {
		t.Fatalf("expected valid value to pass, got %v", err)
	}
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	cache := NewSchemaCache()
	err := Validate(cache, ExecutionResultSchema, json.RawMessage(`{"summary":"done"}`))
	if err == nil {
		t.Fatal("expected validation error for missing 'succeeded'")
	}
	var e *errs.Error
	if !errorsAs(err, &e) {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	if e.Kind() != string(errs.KindReasonerSchema) {
		t.Fatalf("expected ReasonerSchemaError kind, got %s", e.Kind())
	}
}

func TestValidate_RejectsMalformedJSON(t *testing.T) {
	cache := NewSchemaCache()
	err := Validate(cache, ExecutionResultSchema, json.RawMessage(`not json`))
	if err == nil {
		t.Fatal("expected validation error for malformed JSON")
	}
}

func TestValidate_CachesCompiledSchemaAcrossCalls(t *testing.T) {
	cache := NewSchemaCache()
	for i := 0; i < 3; i++ {
		if err := Validate(cache, TaskPlanSchema, json.RawMessage(`{"tasks":[{"description":"x"}]}`)); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(cache.schemas) != 1 {
		t.Fatalf("expected exactly one compiled schema cached, got %d", len(cache.schemas))
	}
}

func errorsAs(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

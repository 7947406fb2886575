package auditlog

import (
	"testing"
	"time"
)

func TestComputeIntegritySHA256_Deterministic(t *testing.T) {
	occurredAt := time.Unix(1700000000, 0).UTC()
	event := Event{
		OccurredAt:   occurredAt,
		Actor:        "system",
		Action:       "concept.update",
		ResourceType: "concept",
		ResourceID:   "https://registry.example.org/concept/C",
	}
	payloadJSON := []byte(`{"snapshot":"s2"}`)

	a, err := ComputeIntegritySHA256(event, payloadJSON)
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	b, err := ComputeIntegritySHA256(event, payloadJSON)
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	if a != b {
		t.Fatalf("integrity mismatch: %q vs %q", a, b)
	}
}

func TestComputeIntegritySHA256_ChangesOnPayload(t *testing.T) {
	occurredAt := time.Unix(1700000000, 0).UTC()
	event := Event{
		OccurredAt:   occurredAt,
		Actor:        "system",
		Action:       "instance.delete",
		ResourceType: "instance",
		ResourceID:   "https://gemeente.example.org/instance/I",
	}

	a, err := ComputeIntegritySHA256(event, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	b, err := ComputeIntegritySHA256(event, []byte(`{"a":2}`))
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	if a == b {
		t.Fatalf("expected integrity to differ")
	}
}

func TestEventValidate(t *testing.T) {
	event := Event{
		OccurredAt:   time.Now(),
		Actor:        "system",
		Action:       "concept.create",
		ResourceType: "concept",
		ResourceID:   "c1",
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	event.Action = ""
	if err := event.Validate(); err == nil {
		t.Fatalf("Validate() expected error for missing action")
	}
}

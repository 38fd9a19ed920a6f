package workspace

import (
	"context"
	"errors"
	"testing"

	"specsmith/internal/draft"
)

func TestDisabledRefusesEverything(t *testing.T) {
	var cap Capability = Disabled{}
	ctx := context.Background()

	if err := cap.RequestAuth(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("RequestAuth: %v", err)
	}
	if _, err := cap.CreateDocument(ctx, "t", "b"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := cap.SendEmail(ctx, "a@example.com", "s", "b"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SendEmail: %v", err)
	}
}

func TestConsentLogAppendsInOrder(t *testing.T) {
	kv, err := draft.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	log := NewConsentLog(kv)

	records, err := log.Records()
	if err != nil {
		t.Fatal(err)
	}
	if records != nil {
		t.Fatalf("fresh log not empty: %+v", records)
	}

	for _, scope := range []string{"documents", "email"} {
		if err := log.Append(scope); err != nil {
			t.Fatalf("Append(%s): %v", scope, err)
		}
	}
	records, err = log.Records()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Scope != "documents" || records[1].Scope != "email" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].GrantedAt.IsZero() {
		t.Fatal("record missing timestamp")
	}
}

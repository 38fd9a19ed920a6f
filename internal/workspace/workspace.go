// internal/workspace/workspace.go
//
// Optional external workspace integration (document creation, email).
// The hearing flow never calls this; it exists behind a capability
// interface so a concrete integration can be plugged in without
// touching the core. Consent records are appended whenever a capability
// is granted, even though the shipped implementation grants nothing.

package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"specsmith/internal/draft"
)

// ErrUnavailable is returned by the disabled capability set.
var ErrUnavailable = errors.New("workspace: integration is not configured")

const consentKey = "consent"

// Capability is the surface an external workspace integration exposes.
type Capability interface {
	RequestAuth(ctx context.Context) error
	CreateDocument(ctx context.Context, title, body string) (string, error)
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Disabled is the shipped no-op implementation.
type Disabled struct{}

func (Disabled) RequestAuth(context.Context) error { return ErrUnavailable }

func (Disabled) CreateDocument(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) SendEmail(context.Context, string, string, string) error {
	return ErrUnavailable
}

// ConsentRecord is one append-only consent entry.
type ConsentRecord struct {
	Scope     string    `json:"scope"`
	GrantedAt time.Time `json:"grantedAt"`
}

// ConsentLog stores consent records through the draft KV backend.
type ConsentLog struct {
	kv  draft.KV
	now func() time.Time
}

// NewConsentLog builds a consent log over a KV backend.
func NewConsentLog(kv draft.KV) *ConsentLog {
	return &ConsentLog{kv: kv, now: time.Now}
}

// Append adds one record to the log. The list is append-only: existing
// entries are never rewritten or removed.
func (c *ConsentLog) Append(scope string) error {
	records, err := c.Records()
	if err != nil {
		return err
	}
	records = append(records, ConsentRecord{Scope: scope, GrantedAt: c.now()})
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("workspace: encode consent log: %w", err)
	}
	return c.kv.Set(consentKey, data)
}

// Records returns all consent entries in insertion order.
func (c *ConsentLog) Records() ([]ConsentRecord, error) {
	data, err := c.kv.Get(consentKey)
	if errors.Is(err, draft.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []ConsentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("workspace: decode consent log: %w", err)
	}
	return records, nil
}

package notification

import (
	"strings"
	"testing"
	"time"

	"data-sentinel/internal/record"
)

func TestFormat_EmbedsCountSampleAndTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 45, 123456789, time.UTC)
	sum := record.Summary{
		SensitiveDataCount: 4,
		MaskedSample: []map[string]string{
			{"nome": "Ana", "cpf": "*****", "email": "*****"},
		},
	}

	msg := Format("a1", "ana@x.com", sum, ts)

	if msg.Subject != "Sensitive Data Audit Result - a1" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Exposed sensitive cells found: 4") {
		t.Fatalf("count missing from body:\n%s", msg.Body)
	}
	// Fractional seconds truncated.
	if !strings.Contains(msg.Body, "09 Mar 2024 14:30:45 UTC") {
		t.Fatalf("timestamp missing or not truncated:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "cpf=*****") || !strings.Contains(msg.Body, "nome=Ana") {
		t.Fatalf("sample row missing:\n%s", msg.Body)
	}
}

func TestFormat_Deterministic(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	sum := record.Summary{
		SensitiveDataCount: 2,
		MaskedSample: []map[string]string{
			{"z": "1", "a": "2", "m": "3"},
		},
	}
	first := Format("a1", "ana@x.com", sum, ts)
	for i := 0; i < 10; i++ {
		if again := Format("a1", "ana@x.com", sum, ts); again != first {
			t.Fatalf("rendering not deterministic on call %d", i)
		}
	}
}

func TestFormat_EmptySampleOmitsSection(t *testing.T) {
	msg := Format("a1", "ana@x.com", record.Summary{}, time.Unix(1700000000, 0))
	if strings.Contains(msg.Body, "Masked sample") {
		t.Fatalf("empty sample should omit the sample section:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "Exposed sensitive cells found: 0") {
		t.Fatalf("zero count missing:\n%s", msg.Body)
	}
}

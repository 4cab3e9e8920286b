package notification

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"data-sentinel/internal/record"
)

// Message is a rendered notification ready for the delivery channel.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// displayTime is how timestamps appear in notification bodies.
// Fractional seconds are truncated.
const displayTime = "02 Jan 2006 15:04:05 MST"

// Format renders the human-readable notification for a completed audit.
//
// Pure function: no side effects, no external calls. Map iteration order is
// normalized by sorting column names so the same inputs always render the
// same body.
func Format(auditID, requesterEmail string, summary record.Summary, ts time.Time) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\n", requesterEmail)
	fmt.Fprintf(&b, "The sensitive data audit %s has completed.\n\n", auditID)
	fmt.Fprintf(&b, "Completed at: %s\n", ts.UTC().Truncate(time.Second).Format(displayTime))
	fmt.Fprintf(&b, "Exposed sensitive cells found: %d\n", summary.SensitiveDataCount)

	if len(summary.MaskedSample) > 0 {
		b.WriteString("\nMasked sample:\n")
		for i, row := range summary.MaskedSample {
			cols := make([]string, 0, len(row))
			for k := range row {
				cols = append(cols, k)
			}
			sort.Strings(cols)

			pairs := make([]string, 0, len(cols))
			for _, k := range cols {
				pairs = append(pairs, fmt.Sprintf("%s=%s", k, row[k]))
			}
			fmt.Fprintf(&b, "  row %d: %s\n", i+1, strings.Join(pairs, ", "))
		}
	}

	b.WriteString("\nThis message was generated automatically; do not reply.\n")

	return Message{
		Subject: fmt.Sprintf("Sensitive Data Audit Result - %s", auditID),
		Body:    b.String(),
	}
}

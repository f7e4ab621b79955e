package agent

import (
	"strings"

	"github.com/ziadkadry99/concierge/internal/tools"
)

// UpdateBooking folds the outcome of a tool cycle into the booking context.
// results must be the executor output for reqs.
func UpdateBooking(b BookingContext, reqs []ToolRequest, results []Turn) BookingContext {
	byID := make(map[string]ToolRequest, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}

	for _, res := range results {
		if res.Kind != TurnToolResult || IsToolError(res.Text) {
			continue
		}
		req := byID[res.ToolRequestID]

		switch res.ToolName {
		case tools.AvailabilityToolName:
			switch {
			case strings.Contains(res.Text, tools.PhraseNoSlots):
				b.PendingSlot = ""
				b.AwaitingConfirmation = false
			case strings.Contains(res.Text, tools.PhraseSlotUnavailable):
				b.PendingSlot = ""
				b.AwaitingConfirmation = true
			case strings.Contains(res.Text, tools.PhraseSlotAvailable):
				b.PendingSlot = requestedDate(req, "target_date")
				b.AwaitingConfirmation = true
			}
		case tools.BookingToolName:
			if strings.Contains(res.Text, tools.PhraseBookingConfirmed) {
				b = BookingContext{}
				continue
			}
			if name, _ := req.Arguments["guest_name"].(string); strings.TrimSpace(name) != "" {
				b.GuestName = strings.TrimSpace(name)
			}
			b.AwaitingConfirmation = true
		}
	}
	return b
}

func requestedDate(req ToolRequest, key string) string {
	raw, _ := req.Arguments[key].(string)
	if normalized, err := tools.NormalizeDate(raw); err == nil {
		return normalized
	}
	return raw
}

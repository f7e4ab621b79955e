package agent

import "strings"

// NoBookingContext is the scratchpad text when nothing is pending.
const NoBookingContext = "No additional booking context."

// RenderScratchpad summarizes booking state for the system prompt.
func RenderScratchpad(b BookingContext) string {
	if b.Empty() {
		return NoBookingContext
	}

	lines := []string{"Current gym booking context:"}
	if b.PendingSlot != "" {
		lines = append(lines, "- Gym slot selected for booking: "+b.PendingSlot)
	}
	if b.GuestName != "" {
		lines = append(lines, "- Guest name for the booking: "+b.GuestName)
	}
	if b.AwaitingConfirmation {
		lines = append(lines, "- Waiting for the guest to confirm a gym slot and/or give their name.")
	}
	return strings.Join(lines, "\n")
}

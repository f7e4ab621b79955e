package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Phrases the tool results are built from. The agent matches on them to
// keep its booking context current.
const (
	PhraseNoSlots          = "no gym slots available"
	PhraseSlotAvailable    = "is available"
	PhraseSlotUnavailable  = "is not available"
	PhraseBookingConfirmed = "Booking confirmed"
)

const (
	maxListedTimes       = 5
	maxAlternativeTimes  = 3
	dateOnlyDefaultClock = "T08:00:00"
	isoLocalLayout       = "2006-01-02T15:04:05"
)

// GymClient talks to the gym availability and booking service.
type GymClient struct {
	baseURL     string
	serviceName string
	http        *http.Client
	logger      *slog.Logger
}

// NewGymClient creates a client for the booking service at baseURL.
func NewGymClient(baseURL, serviceName string, timeout time.Duration, logger *slog.Logger) *GymClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &GymClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		serviceName: serviceName,
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Slot is one bookable start time.
type Slot struct {
	SlotID    any    `json:"slot_id"`
	StartTime string `json:"start_time"`
	// AvailableSlots is the remaining capacity, when the service reports it.
	AvailableSlots *int `json:"available_slots,omitempty"`
}

func (s Slot) open() bool {
	return s.StartTime != "" && (s.AvailableSlots == nil || *s.AvailableSlots > 0)
}

type availabilityRequest struct {
	ServiceName string `json:"service_name"`
	StartTime   string `json:"start_time"`
}

type bookingRequest struct {
	SlotID    any    `json:"slot_id"`
	GuestName string `json:"guest_name"`
}

type bookingResponse struct {
	BookingID any    `json:"booking_id"`
	ID        any    `json:"id"`
	SlotID    any    `json:"slot_id"`
	GuestName string `json:"guest_name"`
}

// NormalizeDate accepts YYYY-MM-DD, YYYY-MM-DDTHH:MM, YYYY-MM-DDTHH:MM:SS
// and RFC 3339 timestamps. A bare date becomes 08:00 on that day.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return s + dateOnlyDefaultClock, nil
	}
	if _, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return s + ":00", nil
	}
	if _, err := time.Parse(isoLocalLayout, s); err == nil {
		return s, nil
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS", s)
}

// Availability returns the open slots near startTime.
func (c *GymClient) Availability(ctx context.Context, startTime string) ([]Slot, error) {
	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/availability", availabilityRequest{
		ServiceName: c.serviceName,
		StartTime:   startTime,
	})
	if err != nil {
		return nil, fmt.Errorf("gym availability: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gym availability returned status %d: %s", status, snippet(body))
	}

	var slots []Slot
	if err := json.Unmarshal(body, &slots); err != nil {
		return nil, fmt.Errorf("unexpected availability response: %s", snippet(body))
	}
	return lo.Filter(slots, func(s Slot, _ int) bool { return s.open() }), nil
}

// CheckAvailability renders the open times near targetDate.
func (c *GymClient) CheckAvailability(ctx context.Context, targetDate string) (string, error) {
	target, err := NormalizeDate(targetDate)
	if err != nil {
		return "", err
	}

	slots, err := c.Availability(ctx, target)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return fmt.Sprintf("There are %s for the requested date and time (%s).", PhraseNoSlots, target), nil
	}

	times := startTimes(slots)
	listed := lo.Subset(times, 0, maxListedTimes)
	encoded, _ := json.Marshal(listed)

	if lo.Contains(times, target) {
		return fmt.Sprintf("The time slot %s %s. Other nearby available times: %s", target, PhraseSlotAvailable, encoded), nil
	}
	return fmt.Sprintf("The time slot %s %s. Available gym times near %s: %s", target, PhraseSlotUnavailable, target, encoded), nil
}

// BookSlot books bookingDate for guestName after re-checking that the
// exact time is still open.
func (c *GymClient) BookSlot(ctx context.Context, bookingDate, guestName string) (string, error) {
	target, err := NormalizeDate(bookingDate)
	if err != nil {
		return "", err
	}

	slots, err := c.Availability(ctx, target)
	if err != nil {
		return "", fmt.Errorf("could not confirm availability before booking: %w", err)
	}

	slot, found := lo.Find(slots, func(s Slot) bool { return s.StartTime == target })
	if !found || slot.SlotID == nil {
		c.logger.Info("requested slot not in availability", "time", target)
		alternatives := lo.Subset(startTimes(slots), 0, maxAlternativeTimes)
		var alt string
		if len(alternatives) > 0 {
			alt = fmt.Sprintf(" Nearby alternatives: %s.", strings.Join(alternatives, ", "))
		}
		return fmt.Sprintf("The requested time %s %s or could not be confirmed.%s Please check availability again with check_availability before booking.",
			target, PhraseSlotUnavailable, alt), nil
	}

	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/booking", bookingRequest{
		SlotID:    slot.SlotID,
		GuestName: guestName,
	})
	if err != nil {
		return "", fmt.Errorf("gym booking: %w", err)
	}

	switch status {
	case http.StatusCreated:
		var resp bookingResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decoding booking response: %w", err)
		}
		bookingID := resp.BookingID
		if bookingID == nil {
			bookingID = resp.ID
		}
		if bookingID == nil {
			bookingID = "not provided"
		}
		name := resp.GuestName
		if name == "" {
			name = guestName
		}
		slotID := resp.SlotID
		if slotID == nil {
			slotID = slot.SlotID
		}
		c.logger.Info("gym slot booked", "time", target, "slot_id", slotID, "booking_id", bookingID)
		return fmt.Sprintf("%s for %s at the gym. Booking ID: %v, Slot ID: %v, Time: %s.",
			PhraseBookingConfirmed, name, bookingID, slotID, target), nil
	case http.StatusConflict:
		c.logger.Warn("booking conflict", "time", target, "slot_id", slot.SlotID)
		return fmt.Sprintf("Booking conflict: the time slot %s (slot ID: %v) is already booked or full.", target, slot.SlotID), nil
	default:
		return "", fmt.Errorf("gym booking returned status %d: %s", status, snippet(body))
	}
}

func startTimes(slots []Slot) []string {
	return lo.Map(slots, func(s Slot, _ int) string { return s.StartTime })
}

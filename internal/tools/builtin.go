package tools

import "context"

// Names of the built-in tools.
const (
	SearchToolName       = "search"
	AvailabilityToolName = "check_availability"
	BookingToolName      = "book_slot"
)

// SearchArgs are the arguments of the search tool.
type SearchArgs struct {
	Query          string  `json:"query" jsonschema:"required,description=The guest question to look up in the hotel knowledge base"`
	Limit          int     `json:"limit,omitempty" jsonschema:"description=Maximum number of passages to return"`
	ScoreThreshold float64 `json:"score_threshold,omitempty" jsonschema:"description=Minimum relevance score between 0 and 1"`
}

// AvailabilityArgs are the arguments of the check_availability tool.
type AvailabilityArgs struct {
	TargetDate string `json:"target_date" jsonschema:"required,description=ISO 8601 date or date-time (YYYY-MM-DDTHH:MM:SS) to check"`
}

// BookingArgs are the arguments of the book_slot tool.
type BookingArgs struct {
	BookingDate string `json:"booking_date" jsonschema:"required,description=Exact ISO 8601 date-time (YYYY-MM-DDTHH:MM:SS) of a confirmed available slot"`
	GuestName   string `json:"guest_name" jsonschema:"required,description=Full name of the guest making the booking"`
}

// Builtins returns the definitions of the search and gym booking tools.
func Builtins(search *SearchClient, gym *GymClient) []Definition {
	searchSchema, searchRequired := reflectSchema[SearchArgs]()
	availSchema, availRequired := reflectSchema[AvailabilityArgs]()
	bookSchema, bookRequired := reflectSchema[BookingArgs]()

	return []Definition{
		{
			Name: SearchToolName,
			Description: "Search the hotel knowledge base for general information such as services, schedules and policies. " +
				"Do not use it to check gym availability or to make bookings.",
			Schema:   searchSchema,
			Required: searchRequired,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				a, err := decodeArgs[SearchArgs](args)
				if err != nil {
					return "", err
				}
				return search.Search(ctx, a.Query, a.Limit, a.ScoreThreshold)
			},
		},
		{
			Name: AvailabilityToolName,
			Description: "Check open gym slots for a date and time. Use it first for any gym question and before booking. " +
				"A date without a time checks from 08:00. Read-only.",
			Schema:   availSchema,
			Required: availRequired,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				a, err := decodeArgs[AvailabilityArgs](args)
				if err != nil {
					return "", err
				}
				return gym.CheckAvailability(ctx, a.TargetDate)
			},
		},
		{
			Name: BookingToolName,
			Description: "Book a gym slot for a guest. Only call it after check_availability confirmed the exact time " +
				"and the guest gave their name. Creates a booking.",
			Schema:   bookSchema,
			Required: bookRequired,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				a, err := decodeArgs[BookingArgs](args)
				if err != nil {
					return "", err
				}
				return gym.BookSlot(ctx, a.BookingDate, a.GuestName)
			},
		},
	}
}

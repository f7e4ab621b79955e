package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/concierge/internal/agent"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage stored conversation threads",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessionsApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.store.ListRecent(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "THREAD\tTURNS\tLAST\tSAVED\tEXPIRES")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", s.ThreadID, s.MessageCount, s.LastTurnType,
				s.SavedAt.Local().Format(time.DateTime), s.ExpiresAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print the turns of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessionsApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		thread, err := a.store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if thread == nil {
			return fmt.Errorf("session %s not found", args[0])
		}

		for _, t := range thread.Turns {
			switch t.Kind {
			case agent.TurnUser:
				fmt.Printf("guest: %s\n", t.Text)
			case agent.TurnAssistant:
				if t.Text != "" {
					fmt.Printf("concierge: %s\n", t.Text)
				}
				for _, r := range t.ToolRequests {
					raw, _ := json.Marshal(r.Arguments)
					fmt.Printf("  -> %s %s [%s]\n", r.ToolName, raw, r.ID)
				}
			case agent.TurnToolResult:
				fmt.Printf("  <- %s [%s]: %s\n", t.ToolName, t.ToolRequestID, t.Text)
			}
		}
		if !thread.Booking.Empty() {
			fmt.Printf("\nbooking: slot=%q guest=%q awaiting=%v\n",
				thread.Booking.PendingSlot, thread.Booking.GuestName, thread.Booking.AwaitingConfirmation)
		}
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <thread-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSessionsApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		existed, err := a.store.Clear(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("session %s not found", args[0])
		}
		fmt.Printf("Cleared session %s.\n", args[0])
		return nil
	},
}

func openSessionsApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openApp(cmd.Context(), cfg, newLogger(false))
}

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

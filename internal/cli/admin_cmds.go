package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datatalk-cz/events-bot/internal/calendar"
	"github.com/datatalk-cz/events-bot/internal/store"
)

func openStore() (*store.Store, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DatabasePath)
}

// newEventsCmd lists stored upcoming events.
func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List stored upcoming events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			events, err := st.UpcomingEvents(time.Now())
			if err != nil {
				return err
			}
			if len(events) == 0 {
				cmd.Println("No upcoming events")
				return nil
			}
			for _, ev := range events {
				when := "date unknown"
				if ev.Date != nil {
					when = ev.Date.Format("2006-01-02 15:04")
				}
				where := ev.Location
				if where == "" {
					where = "TBD"
				}
				cmd.Printf("%s  %-16s  %s (%s)\n", ev.ExternalID, when, ev.Title, where)
			}
			return nil
		},
	}
}

// newRunsCmd shows recent scrape-run history.
func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent scrape runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			runs, err := st.RecentRuns(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				line := fmt.Sprintf("#%d  %s  %-7s  found=%d new=%d",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.EventsFound, r.EventsNew)
				if r.ErrorMessage != "" {
					line += "  error: " + r.ErrorMessage
				}
				cmd.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

// newExportCmd writes an event's calendar invite to stdout.
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <external-id>",
		Short: "Export one event as an iCalendar object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			ev, err := st.EventByExternalID(args[0])
			if err != nil {
				return err
			}
			cmd.Print(calendar.GenerateICS(ev))
			return nil
		},
	}
}

// newSubscribersCmd groups the subscriber lifecycle operations.
func newSubscribersCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage subscribers",
	}

	var email, chatID string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a pending subscriber",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			sub, err := st.CreateSubscriber(email, chatID)
			if err != nil {
				return err
			}
			cmd.Printf("Subscriber %s created, verification token: %s\n", sub.Email, sub.VerificationToken)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Subscriber email (required)")
	add.Flags().StringVar(&chatID, "telegram-chat-id", "", "Optional Telegram chat id")
	add.MarkFlagRequired("email")

	var token string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify a pending subscriber by token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			sub, err := st.VerifySubscriber(token)
			if err != nil {
				return err
			}
			cmd.Printf("Subscriber %s verified\n", sub.Email)
			return nil
		},
	}
	verify.Flags().StringVar(&token, "token", "", "Verification token (required)")
	verify.MarkFlagRequired("token")

	var removeEmail string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Unsubscribe an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if err := st.Unsubscribe(removeEmail); err != nil {
				return err
			}
			cmd.Printf("Subscriber %s unsubscribed\n", removeEmail)
			return nil
		},
	}
	remove.Flags().StringVar(&removeEmail, "email", "", "Subscriber email (required)")
	remove.MarkFlagRequired("email")

	root.AddCommand(add, verify, remove)
	return root
}

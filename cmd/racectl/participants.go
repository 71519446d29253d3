package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/payment/factory"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

func participantsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "participants",
		Aliases: []string{"p"},
		Short:   "Inspect and manage registrations",
	}
	cmd.AddCommand(listParticipantsCmd(e))
	cmd.AddCommand(confirmParticipantCmd(e))
	cmd.AddCommand(cancelParticipantCmd(e))
	return cmd
}

func listParticipantsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raceID, _ := cmd.Flags().GetInt64("race")
			status, _ := cmd.Flags().GetString("status")
			country, _ := cmd.Flags().GetString("country")
			asJSON, _ := cmd.Flags().GetBool("json")

			f := trailrace.ParticipantFilter{
				RaceID:  raceID,
				Country: country,
				Status:  trailrace.Status(strings.ToLower(status)),
			}
			if f.Status != "" && !f.Status.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}

			now := time.Now()
			ps, err := e.store.ListParticipants(cmd.Context(), f, now)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(ps)
			}
			return printParticipants(e.out, ps, now)
		},
	}

	cmd.Flags().Int64P("race", "r", 0, "Only this race ID")
	cmd.Flags().StringP("status", "s", "", "pending, confirmed or cancelled")
	cmd.Flags().StringP("country", "c", "", "Only this country")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func printParticipants(w io.Writer, ps []trailrace.Participant, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBIB\tNAME\tCOUNTRY\tCATEGORY\tSTATUS\tEMAIL\tREGISTERED")
	for _, p := range ps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.BibNumber, p.FullName(), p.Country,
			trailrace.ParticipantCategory(p, now), p.Status, p.Email,
			p.RegistrationDate.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d participant(s)\n", len(ps))
	return err
}

// newService builds the registration service from configuration so that
// manual confirmations send the same email as online ones.
func newService(e *env) (*registration.Service, error) {
	payments, err := factory.NewProvider(e.cfg.Payment, e.cfg.PublicURL)
	if err != nil {
		return nil, err
	}
	mailer := mail.New(e.cfg.Mail.SendGridAPIKey,
		mail.Address{Email: e.cfg.Mail.From, Name: e.cfg.Mail.FromName}, e.logger)
	return registration.NewService(e.store, payments, mailer, e.logger, registration.Options{
		Currency: e.cfg.Payment.Currency,
		LinkTTL:  e.cfg.Payment.LinkTTL,
	}), nil
}

func participantID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid participant id %q", arg)
	}
	return id, nil
}

func confirmParticipantCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm [id]",
		Short: "Mark a registration as paid, for cash or bank transfer payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := participantID(args[0])
			if err != nil {
				return err
			}
			svc, err := newService(e)
			if err != nil {
				return err
			}
			c, err := svc.ConfirmManually(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !c.Changed {
				fmt.Fprintf(e.out, "%s (%s) was already confirmed\n", c.Participant.FullName(), c.Participant.BibNumber)
				return nil
			}
			fmt.Fprintf(e.out, "confirmed %s (%s)\n", c.Participant.FullName(), c.Participant.BibNumber)
			return nil
		},
	}
}

func cancelParticipantCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := participantID(args[0])
			if err != nil {
				return err
			}
			svc, err := newService(e)
			if err != nil {
				return err
			}
			p, err := svc.Cancel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s (%s) is %s\n", p.FullName(), p.BibNumber, p.Status)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/portaria/internal/app"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
)

func parseOptionalDate(v string) (*localtime.Date, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	d, err := service.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show reconciled entry/exit sessions, newest day first",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseOptionalDate(from)
			if err != nil {
				return err
			}
			toDate, err := parseOptionalDate(to)
			if err != nil {
				return err
			}

			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.Sessions.DayView(c, fromDate, toDate)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(resp.Sessions))
				for _, s := range resp.Sessions {
					rows = append(rows, []string{s.Date, s.PersonName, s.Entry, s.Exit, s.Duration})
				}
				label := a.Zone.Label()
				headers := []string{"Date", "Person", "Entry (" + label + ")", "Exit (" + label + ")", "Duration"}
				if err := writeRows(cmd.OutOrStdout(), headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}); err != nil {
					return err
				}
				if resp.OrphanExits > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d exit(s) without a matching entry were ignored\n", resp.OrphanExits)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First local date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last local date (YYYY-MM-DD)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var date, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one local day's sessions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := service.ParseDate(date)
			if err != nil {
				return err
			}

			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				exp, err := a.Sessions.ExportDay(c, d)
				if err != nil {
					return err
				}

				if out == "-" {
					return exp.WriteCSV(cmd.OutOrStdout())
				}
				path := out
				if path == "" {
					path = exp.FileName
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				if err := exp.WriteCSV(f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", len(exp.Records()), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Local date to export (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default entry_exit_logs_<date>.csv, - for stdout)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newStaysCommand(ctx *commandContext) *cobra.Command {
	var person string

	cmd := &cobra.Command{
		Use:   "stays",
		Short: "Pair every entry with the next exit and report minutes inside",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.Sessions.Stays(c, person)
				if errors.Is(err, service.ErrNotFound) {
					return fmt.Errorf("%w (see `portaria people list`)", err)
				}
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(resp.Stays))
				for _, s := range resp.Stays {
					rows = append(rows, []string{s.PersonName, s.Entry, s.Exit, strconv.FormatInt(s.Minutes, 10)})
				}
				return writeRows(cmd.OutOrStdout(), []string{"Person", "Entry", "Exit", "Minutes"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
			})
		},
	}

	cmd.Flags().StringVar(&person, "person", "", "Limit to one person_system_id")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/portaria/internal/app"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
)

func newPeopleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Manage registered people",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newPeopleListCommand(ctx))
	cmd.AddCommand(newPeopleAddCommand(ctx))
	cmd.AddCommand(newPeopleDeleteCommand(ctx))
	return cmd
}

func newPeopleListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List people by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.People.List(c)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.People))
				for _, p := range resp.People {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10), p.Name, p.SystemID, yesNo(p.HasEncoding), p.CreatedAtLocal,
					})
				}
				return writeRows(cmd.OutOrStdout(), []string{"ID", "Name", "System ID", "Encoding", "Created"}, rows,
					[]columnAlignment{alignRight})
			})
		},
	}
}

func newPeopleAddCommand(ctx *commandContext) *cobra.Command {
	var in service.PersonInput
	var photoPath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a person, optionally with a photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if photoPath != "" {
				data, err := os.ReadFile(photoPath)
				if err != nil {
					return fmt.Errorf("read photo: %w", err)
				}
				in.Photo = &service.PhotoUpload{Filename: filepath.Base(photoPath), Data: data}
			}

			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.People.Register(c, in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "registered %s (%s) as person %d\n", resp.Person.Name, resp.Person.SystemID, resp.Person.ID)
				if resp.Warning != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", resp.Warning)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.SystemID, "system-id", "", "Unique person_system_id")
	cmd.Flags().StringVar(&in.OtherData, "other-data", "", "Free-form notes")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to a png/jpg/jpeg photo")
	return cmd
}

func newPeopleDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a person with all of their events and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid person id %q", args[0])
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.People.Delete(c, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted person %d and %d event(s)\n", resp.ID, resp.DeletedEvents)
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

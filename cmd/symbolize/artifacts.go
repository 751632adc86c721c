package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/addr2line-web/addr2line/internal/application"
	"github.com/addr2line-web/addr2line/internal/core"
)

func newArtifactsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artifacts",
		Aliases: []string{"a"},
		Short:   "Manage stored binaries",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored binaries in order",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, func(cmd *cobra.Command, app *application.App, _ []string) error {
				return printArtifacts(cmd, app.Session.State())
			}),
		},
		&cobra.Command{
			Use:   "add FILE...",
			Short: "Store binaries; the last one becomes active",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(opts, func(cmd *cobra.Command, app *application.App, args []string) error {
				uploads := make([]core.Upload, 0, len(args))
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					abs, err := filepath.Abs(path)
					if err != nil {
						abs = path
					}
					uploads = append(uploads, core.Upload{
						Name:    filepath.Base(path),
						Path:    abs,
						Content: core.BytesSource(data),
					})
				}
				effect, err := app.Session.Dispatch(cmd.Context(), core.AddArtifacts{Uploads: uploads})
				for _, id := range effect.IDs {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "rm ARTIFACT",
			Short: "Remove a stored binary",
			Args:  cobra.ExactArgs(1),
			RunE: withArtifact(opts, func(ctx context.Context, app *application.App, a core.Artifact, _ int, _ []string) error {
				_, err := app.Session.Dispatch(ctx, core.RemoveArtifact{ID: a.ID})
				return err
			}),
		},
		&cobra.Command{
			Use:   "mv FROM TO",
			Short: "Move the binary at position FROM to position TO",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(opts, func(cmd *cobra.Command, app *application.App, args []string) error {
				from, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("FROM: %w", err)
				}
				to, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("TO: %w", err)
				}
				_, err = app.Session.Dispatch(cmd.Context(), core.ReorderArtifact{From: from, To: to})
				return err
			}),
		},
		&cobra.Command{
			Use:   "rename ARTIFACT [NAME]",
			Short: "Set the display name; without NAME the file name is restored",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withArtifact(opts, func(ctx context.Context, app *application.App, a core.Artifact, _ int, rest []string) error {
				name := ""
				if len(rest) > 0 {
					name = rest[0]
				}
				_, err := app.Session.Dispatch(ctx, core.RenameArtifact{ID: a.ID, DisplayName: name})
				return err
			}),
		},
		&cobra.Command{
			Use:   "tag ARTIFACT TAG",
			Short: "Add a tag",
			Args:  cobra.ExactArgs(2),
			RunE: withArtifact(opts, func(ctx context.Context, app *application.App, a core.Artifact, _ int, rest []string) error {
				_, err := app.Session.Dispatch(ctx, core.AddTag{ID: a.ID, Tag: rest[0]})
				return err
			}),
		},
		&cobra.Command{
			Use:   "untag ARTIFACT TAG",
			Short: "Remove a tag",
			Args:  cobra.ExactArgs(2),
			RunE: withArtifact(opts, func(ctx context.Context, app *application.App, a core.Artifact, _ int, rest []string) error {
				_, err := app.Session.Dispatch(ctx, core.RemoveTag{ID: a.ID, Tag: rest[0]})
				return err
			}),
		},
	)
	return cmd
}

// withApp opens the configured store for the duration of fn.
func withApp(opts *options, fn func(*cobra.Command, *application.App, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load(cmd)
		if err != nil {
			return err
		}
		app, err := application.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, app, args)
	}
}

// withArtifact is withApp for commands whose first argument names an
// artifact by id or display name.
func withArtifact(opts *options, fn func(context.Context, *application.App, core.Artifact, int, []string) error) func(*cobra.Command, []string) error {
	return withApp(opts, func(cmd *cobra.Command, app *application.App, args []string) error {
		a, idx, err := findArtifact(app.Registry, args[0])
		if err != nil {
			return err
		}
		return fn(cmd.Context(), app, a, idx, args[1:])
	})
}

func printArtifacts(cmd *cobra.Command, st core.State) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tTAGS\tSIZE\tPATH")
	for _, e := range st.Entries {
		marker := strconv.Itoa(e.Index)
		if e.Active {
			marker += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			marker,
			e.Artifact.ID,
			e.Artifact.DisplayName,
			strings.Join(e.Artifact.Tags, ","),
			e.Artifact.Size,
			e.Artifact.SourcePath,
		)
	}
	return tw.Flush()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/addr2line-web/addr2line/internal/application"
	"github.com/addr2line-web/addr2line/internal/core"
)

func newConvertCmd(opts *options) *cobra.Command {
	var (
		binaryPath string
		artifact   string
		inputPath  string
		pattern    string
		remoteURL  string
		functions  bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Resolve the addresses in a log",
		Long: `Resolve every address in the input against a binary and print the
annotated text. With --binary the file is used directly; otherwise the
stored artifact named by --artifact, or the active one, is used.`,
		Example: `  symbolize convert --binary ./firmware.elf --input crash.log
  dmesg | symbolize convert --artifact kernel --pattern '/build/[^/]+/(.*)'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if remoteURL != "" {
				cfg.Resolver.Backend = "remote"
				cfg.Resolver.RemoteURL = remoteURL
			}
			if cmd.Flags().Changed("functions") {
				cfg.Resolver.Functions = functions
			}

			text, err := readInput(cmd, inputPath)
			if err != nil {
				return err
			}

			if binaryPath != "" {
				binary, err := os.ReadFile(binaryPath)
				if err != nil {
					return fmt.Errorf("read binary: %w", err)
				}
				converter, err := application.NewConverter(cfg)
				if err != nil {
					return err
				}
				conv, err := converter.Run(cmd.Context(), text, binary, pattern)
				return printConversion(cmd, conv, err)
			}

			app, err := application.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if artifact != "" {
				_, idx, err := findArtifact(app.Registry, artifact)
				if err != nil {
					return err
				}
				if _, err := app.Session.Dispatch(cmd.Context(), core.SelectArtifact{Index: idx}); err != nil {
					return err
				}
			}
			for _, c := range []core.Command{core.SetInput{Text: text}, core.SetCleanupPattern{Pattern: pattern}} {
				if _, err := app.Session.Dispatch(cmd.Context(), c); err != nil {
					return err
				}
			}

			conv, err := app.Session.Convert(cmd.Context())
			return printConversion(cmd, conv, err)
		},
	}

	cmd.Flags().StringVarP(&binaryPath, "binary", "b", "", "binary with debug info to resolve against")
	cmd.Flags().StringVarP(&artifact, "artifact", "a", "", "stored artifact id or display name (default: active)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "log file to convert, - for stdin")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "cleanup pattern applied to the output")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "resolve with a remote conversion endpoint")
	cmd.Flags().BoolVar(&functions, "functions", false, "prefix locations with the enclosing function")
	cmd.MarkFlagsMutuallyExclusive("binary", "artifact")

	return cmd
}

// printConversion writes the rendered output, reports any diagnostic on
// stderr and returns err with its support code.
func printConversion(cmd *cobra.Command, conv *core.Conversion, err error) error {
	if conv != nil {
		if _, werr := io.WriteString(cmd.OutOrStdout(), conv.Output); werr != nil {
			return werr
		}
		if conv.Diagnostic != "" && err == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", conv.Diagnostic)
		}
	}
	if err != nil {
		return fmt.Errorf("%w [%s]", err, core.MapError(err).Code)
	}
	return nil
}

// findArtifact looks ref up as an id, then as a unique display name.
func findArtifact(reg *core.Registry, ref string) (core.Artifact, int, error) {
	items := reg.Items()
	for i, a := range items {
		if a.ID == ref {
			return a, i, nil
		}
	}

	found := -1
	for i, a := range items {
		if a.DisplayName != ref {
			continue
		}
		if found >= 0 {
			return core.Artifact{}, 0, fmt.Errorf("%q names more than one artifact; use its id", ref)
		}
		found = i
	}
	if found < 0 {
		return core.Artifact{}, 0, fmt.Errorf("%s: %w", ref, core.ErrArtifactNotFound)
	}
	return items[found], found, nil
}

var errNoPattern = errors.New("a cleanup pattern is required")

func newCleanupCmd(opts *options) *cobra.Command {
	var inputPath, pattern string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Apply a cleanup pattern to text",
		Long: `Apply a cleanup pattern repeatedly until the text stops changing. Each
match is replaced by the concatenation of its capture groups.`,
		Example: `  symbolize cleanup --pattern '/home/[^/]+/(src/)' < converted.log`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if pattern == "" {
				return errNoPattern
			}

			text, err := readInput(cmd, inputPath)
			if err != nil {
				return err
			}

			engine := core.NewCleanupEngine(core.CleanupOptions{
				MatchTimeout:   cfg.Cleanup.MatchTimeout,
				MaxOutputBytes: cfg.Cleanup.MaxOutputBytes,
			}, cfg.Cleanup.CacheTTL)
			out, err := engine.Apply(text, pattern)
			if err != nil {
				return fmt.Errorf("%w [%s]", err, core.MapError(err).Code)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "text file, - for stdin")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "cleanup pattern")
	return cmd
}

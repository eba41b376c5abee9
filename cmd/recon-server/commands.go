package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ehr/recon/internal/config"
	"github.com/ehr/recon/internal/domain/matching"
	"github.com/ehr/recon/internal/platform/db"
	"github.com/ehr/recon/internal/platform/outcome"
)

// errInvalidPayload is returned by runMatch after the validation issues have
// been written.
var errInvalidPayload = errors.New("invalid match payload")

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Reconcile a bookings/claims JSON document offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("input")
			outPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			matcher, pool, err := loadMatcher(ctx, cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			in := io.Reader(os.Stdin)
			if inPath != "" && inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			return runMatch(in, out, cmd.ErrOrStderr(), matcher)
		},
	}
	cmd.Flags().StringP("input", "i", "-", "Path to the {bookings, claims} JSON document, - for stdin")
	cmd.Flags().StringP("output", "o", "", "Write the result here instead of stdout")
	return cmd
}

// runMatch decodes a MatchRequest from in, validates it and writes the
// MatchResponse to out. Validation issues go to errOut as an outcome.
func runMatch(in io.Reader, out, errOut io.Writer, matcher *matching.Matcher) error {
	var req matching.MatchRequest
	dec := json.NewDecoder(in)
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if issues := req.Validate(); len(issues) > 0 {
		if err := writeJSON(errOut, outcome.FromIssues(issues)); err != nil {
			return err
		}
		return errInvalidPayload
	}

	resp := matching.MatchResponse{Matches: matcher.Match(req.Bookings, req.Claims)}
	return writeJSON(out, resp)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Print the effective test code mapping table",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			matcher, pool, err := loadMatcher(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}
			return printMappings(cmd.OutOrStdout(), matcher.TestCodes().Entries(), format)
		},
	}
	cmd.Flags().StringP("format", "f", "table", "Output format: table, yaml or json")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the mappings stored in postgres with a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			ctx := cmd.Context()
			mappings, err := matching.NewYAMLSource(file).LoadTestMappings(ctx)
			if err != nil {
				return err
			}
			// Validate before touching the table.
			if _, err := matching.LoadTestCodeMap(ctx, staticMappings(mappings)); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := matching.NewMappingRepoPG(pool).ReplaceTestMappings(ctx, mappings); err != nil {
				return fmt.Errorf("import mappings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mapping(s) from %s.\n", len(mappings), file)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "YAML mapping file to import")
	cmd.AddCommand(importCmd)

	return cmd
}

type staticMappings []matching.TestMapping

func (s staticMappings) LoadTestMappings(context.Context) ([]matching.TestMapping, error) {
	return s, nil
}

func printMappings(w io.Writer, entries []matching.TestMapping, format string) error {
	switch format {
	case "yaml":
		data, err := matching.MarshalYAMLMappings(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		return writeJSON(w, entries)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BOOKING TEST\tCLAIM SERVICE CODE")
		for _, m := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", m.BookingTestID, m.ClaimTestID)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres mapping source",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewEmbeddedMigrator(pool).UpTo(ctx, target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewEmbeddedMigrator(pool).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

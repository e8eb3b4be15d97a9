// Package admin provides the formctl command tree for moderating users and
// exporting submissions without the HTTP API.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/formconsole/internal/application"
	"github.com/JonMunkholm/formconsole/internal/core"
)

// Opener builds the application a command runs against.
type Opener func(ctx context.Context) (*application.App, error)

// NewRootCmd returns the formctl root command.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Administer form templates, users and submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newExportCmd(open),
		newStatsCmd(open),
		newUsersCmd(open),
	)
	return root
}

// withApp opens the application, runs fn and closes it again.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, app *application.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(context.Background()); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: close: %v\n", cerr)
		}
	}()
	return fn(ctx, app)
}

func newExportCmd(open Opener) *cobra.Command {
	var (
		detailed   bool
		format     string
		templateID string
		userID     string
		from       string
		to         string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submissions as CSV or XLSX",
		Long: `Export submissions matching the given filters.

The summary export has one row per submission. --detailed writes one row per
answered field, labelled from the submission's template.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtVal, err := core.ParseExportFormat(format)
			if err != nil {
				return err
			}
			f := core.SubmissionFilter{TemplateID: templateID, UserID: userID}
			if f.From, err = parseDate(from, false); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if f.To, err = parseDate(to, true); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			return withApp(cmd, open, func(ctx context.Context, app *application.App) error {
				file, err := app.Service.ExportSubmissions(ctx, f, core.ExportOptions{Detailed: detailed, Format: fmtVal})
				if err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(file.Data)
					return err
				}
				if err := os.WriteFile(out, file.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", file.Rows, out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "One row per answered field")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringVar(&templateID, "template", "", "Only submissions of this template")
	cmd.Flags().StringVar(&userID, "user", "", "Only submissions this user contributed to")
	cmd.Flags().StringVar(&from, "from", "", "Submitted on or after (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "Submitted on or before (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newStatsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print submission statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *application.App) error {
				return writeJSON(cmd.OutOrStdout(), app.Service.Statistics(ctx))
			})
		},
	}
}

func newUsersCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Moderate user registrations",
	}

	var (
		adminUID string
		note     string
		reason   string
	)
	approve := &cobra.Command{
		Use:   "approve ID...",
		Short: "Approve pending users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *application.App) error {
				res, err := app.Service.BulkApproveUsers(ctx, core.Actor{UID: adminUID}, args, note)
				return reportBulk(cmd.OutOrStdout(), res, err)
			})
		},
	}
	approve.Flags().StringVar(&note, "note", "", "Optional approval note")

	reject := &cobra.Command{
		Use:   "reject ID...",
		Short: "Reject users with a reason",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *application.App) error {
				res, err := app.Service.BulkRejectUsers(ctx, core.Actor{UID: adminUID}, args, reason)
				return reportBulk(cmd.OutOrStdout(), res, err)
			})
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Rejection reason shown to the user")
	_ = reject.MarkFlagRequired("reason")

	cmd.PersistentFlags().StringVar(&adminUID, "admin", "", "UID of the acting administrator")
	_ = cmd.MarkPersistentFlagRequired("admin")

	cmd.AddCommand(approve, reject)
	return cmd
}

// reportBulk prints the per-item results and returns the aggregate failure.
func reportBulk(w io.Writer, res *core.BulkResult, err error) error {
	if err != nil {
		return err
	}
	if err := writeJSON(w, res); err != nil {
		return err
	}
	return res.Err()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDate(val string, endOfDay bool) (time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", val)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

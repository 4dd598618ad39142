package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/preemptiveoop/trialhub/internal/service"
	"github.com/preemptiveoop/trialhub/internal/store"
	"github.com/spf13/cobra"
)

type listOptions struct {
	owner       string
	participant string
	keyword     string
	watch       time.Duration
}

func newListCommand(opts *rootOptions) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Long: `List the experiments selected by exactly one filter, newest first.
Records that cannot be loaded are reported below the table.

Examples:
  trialhub list --owner alice
  trialhub list --keyword coin --watch 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := lo.filter()
			if err != nil {
				return err
			}

			app, err := opts.openApplication(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer app.close()

			view := service.NewListView(app.experimentService)
			return runList(cmd.Context(), view, filter, lo.watch, cmd.OutOrStdout(), app.logger)
		},
	}
	cmd.Flags().StringVar(&lo.owner, "owner", "", "experiments owned by this user")
	cmd.Flags().StringVar(&lo.participant, "participant", "", "experiments this user contributed trials to")
	cmd.Flags().StringVar(&lo.keyword, "keyword", "", "published experiments tagged with this keyword")
	cmd.Flags().DurationVar(&lo.watch, "watch", 0, "refresh at this interval until interrupted")
	cmd.MarkFlagsMutuallyExclusive("owner", "participant", "keyword")
	cmd.MarkFlagsOneRequired("owner", "participant", "keyword")
	return cmd
}

func (lo *listOptions) filter() (store.ExperimentFilter, error) {
	var f store.ExperimentFilter
	switch {
	case lo.owner != "":
		f = store.OwnerEquals(lo.owner)
	case lo.participant != "":
		f = store.ParticipantsContain(lo.participant)
	case lo.keyword != "":
		f = store.KeywordPublished(lo.keyword)
	}
	return f, f.Validate()
}

// runList renders one refresh of view. With a positive watch interval it
// keeps refreshing until ctx is done; refresh errors are then logged rather
// than returned.
func runList(
	ctx context.Context,
	view *service.ListView,
	filter store.ExperimentFilter,
	watch time.Duration,
	out io.Writer,
	log *slog.Logger,
) error {
	refresh := func() error {
		res, err := view.Refresh(ctx, filter)
		if errors.Is(err, service.ErrStaleResult) {
			return nil
		}
		if err != nil {
			return err
		}
		return printList(out, res)
	}

	if err := refresh(); err != nil {
		return fmt.Errorf("failed to list experiments: %w", err)
	}
	if watch <= 0 {
		return nil
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := refresh(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("failed to refresh experiment list", "error", err, "filter", filter.String())
			}
		}
	}
}

func printList(out io.Writer, res *service.ListResult) error {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Type", "Owner", "Status", "Created", "Experimenters", "Description"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, exp := range res.Experiments {
		h := exp.Header()
		table.Append([]string{
			h.DatabaseID,
			string(exp.Type()),
			h.Owner,
			string(h.Status),
			h.CreationDate.Format(time.RFC3339),
			strconv.Itoa(len(h.Experimenters)),
			h.Description,
		})
	}
	table.Render()

	warn := color.New(color.FgYellow)
	if out != io.Writer(os.Stdout) {
		warn.DisableColor()
	}
	for _, f := range res.Failures {
		if _, err := warn.Fprintf(out, "skipped %s\n", f.Error()); err != nil {
			return err
		}
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
	"github.com/spf13/cobra"
)

var (
	leadsSource   string
	leadsMinScore int
	leadsMaxScore int
	leadsSearch   string
	leadsSince    time.Duration
	leadsSortBy   string
	leadsOrder    string
	leadsLimit    int
	leadsOffset   int
	leadsJSON     bool
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads from the configured store",
	Long: `Leads queries the store named by storage.driver.

Example:
  leadscout leads --source Reddit --min-score 60 --since 72h
  leadscout leads --search logo --sort confidence_score --json`,
	RunE: runLeads,
}

func init() {
	rootCmd.AddCommand(leadsCmd)

	leadsCmd.Flags().StringVar(&leadsSource, "source", "", "only leads from this source label, e.g. Reddit")
	leadsCmd.Flags().IntVar(&leadsMinScore, "min-score", 0, "minimum confidence score")
	leadsCmd.Flags().IntVar(&leadsMaxScore, "max-score", 0, "maximum confidence score (0 = no limit)")
	leadsCmd.Flags().StringVar(&leadsSearch, "search", "", "match company name, pain summary or email")
	leadsCmd.Flags().DurationVar(&leadsSince, "since", 0, "only leads found within this window, e.g. 72h")
	leadsCmd.Flags().StringVar(&leadsSortBy, "sort", storage.SortFoundAt, "sort key (found_at, confidence_score, company_name)")
	leadsCmd.Flags().StringVar(&leadsOrder, "order", "desc", "sort order (asc, desc)")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 50, "maximum rows")
	leadsCmd.Flags().IntVar(&leadsOffset, "offset", 0, "rows to skip")
	leadsCmd.Flags().BoolVar(&leadsJSON, "json", false, "print JSON instead of a table")
}

func runLeads(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, verbose, cmd.ErrOrStderr())

	store, err := newStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no lead store configured; set storage.driver and storage.dsn")
	}
	defer store.Close()

	filter := storage.Filter{
		Source:    leadsSource,
		MinScore:  leadsMinScore,
		MaxScore:  leadsMaxScore,
		Search:    leadsSearch,
		SortBy:    leadsSortBy,
		SortOrder: leadsOrder,
		Limit:     leadsLimit,
		Offset:    leadsOffset,
	}
	if leadsSince > 0 {
		since := time.Now().Add(-leadsSince)
		filter.Since = &since
	}

	leads, err := store.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}
	logger.Debug("leads queried", "count", len(leads), "driver", cfg.Storage.Driver)

	if leadsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	}
	return writeLeadTable(cmd.OutOrStdout(), leads)
}

func writeLeadTable(w io.Writer, leads []*lead.Formatted) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tURGENCY\tSOURCE\tCOMPANY\tEMAIL\tPHONE\tFOUND")
	for _, l := range leads {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ConfidenceScore,
			l.Urgency,
			l.Source,
			lead.Truncate(l.CompanyName, 40),
			orDash(l.Email),
			orDash(l.Phone),
			l.FoundAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

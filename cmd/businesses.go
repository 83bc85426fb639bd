package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/store"
)

var businessesCmd = &cobra.Command{
	Use:   "businesses",
	Short: "List stored businesses, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")
		runID, _ := cmd.Flags().GetString("run")

		list, err := st.ListBusinesses(ctx, store.BusinessFilter{
			RunID:  runID,
			Source: source,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "businesses")
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No businesses found.")
			return nil
		}

		formatBusinesses(os.Stdout, list)
		return nil
	},
}

func init() {
	businessesCmd.Flags().Int("limit", 50, "max number of businesses to display")
	businessesCmd.Flags().String("source", "", "filter by source")
	businessesCmd.Flags().String("run", "", "filter by run ID")
	rootCmd.AddCommand(businessesCmd)
}

// formatBusinesses writes a tabular list of stored businesses to w.
func formatBusinesses(out io.Writer, list []model.StoredBusiness) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPHONE\tACCREDITED\tSCRAPED\tURL")
	_, _ = fmt.Fprintln(w, "----\t-----\t----------\t-------\t---")

	for _, b := range list {
		name := b.Name
		if len(name) > 35 {
			name = name[:32] + "..."
		}
		phone := "-"
		if b.Phone != nil {
			phone = *b.Phone
		}
		accredited := "no"
		if b.Accredited() {
			accredited = "yes"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name,
			phone,
			accredited,
			b.ScrapedAt.Format("2006-01-02 15:04"),
			b.URL,
		)
	}
	_ = w.Flush()
}

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vibepick/internal/mood"
)

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "List the moods and their search keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("moods"); err != nil {
			return err
		}

		tax := mood.Default()
		if cfg.Mood.File != "" {
			t, err := mood.Load(cfg.Mood.File)
			if err != nil {
				return eris.Wrap(err, "load mood taxonomy")
			}
			tax = t
		}
		return printMoods(cmd.OutOrStdout(), tax)
	},
}

func printMoods(out io.Writer, tax *mood.Taxonomy) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MOOD\tLABEL\tKEYWORDS")
	for _, m := range tax.Moods() {
		p := tax.ProfileFor(m)
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Mood, p.DisplayLabel, strings.Join(p.Keywords, ", "))
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(moodsCmd)
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/recommend"
)

var (
	pickMood   string
	pickZip    string
	pickLat    float64
	pickLng    float64
	pickRadius int
	pickReroll bool
	pickJSON   bool
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a place for a mood near a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("pick"); err != nil {
			return err
		}
		env, err := initApp(cfg)
		if err != nil {
			return err
		}

		m := mood.Mood(pickMood)
		if !env.Taxonomy.Known(m) {
			zap.L().Warn("unknown mood, using surprise", zap.String("mood", pickMood))
		}

		loc, err := resolveLocation(cmd.Context(), env.Resolver, locationFlags{
			zip:    pickZip,
			lat:    pickLat,
			lng:    pickLng,
			hasLat: cmd.Flags().Changed("lat"),
			hasLng: cmd.Flags().Changed("lng"),
		})
		if err != nil {
			return err
		}

		res, err := env.Recommender.Recommend(cmd.Context(), m, loc, pickRadius, pickReroll)
		if err != nil {
			return err
		}

		if pickJSON {
			return writeIndented(cmd.OutOrStdout(), res)
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

func printResult(out io.Writer, res *recommend.Result) error {
	pick := res.Pick()
	fmt.Fprintf(out, "%s (%s)\n", pick.Name, pick.Mood)
	fmt.Fprintf(out, "  %s\n", pick.Reason)
	fmt.Fprintf(out, "  %s, %s near %s\n", pick.Address, pick.Distance, pick.UserLocation)
	fmt.Fprintf(out, "  %s\n", pick.OpenHours)
	fmt.Fprintf(out, "  %s\n\n", pick.MapsURL)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tRATING\tDISTANCE\tPROVIDER")
	for i, r := range res.Ranked {
		marker := ""
		if i == res.Selected {
			marker = "*"
		}
		rating := "-"
		if r.Rating != nil {
			rating = fmt.Sprintf("%.1f", *r.Rating)
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\n", i+1, marker, r.Name, rating, r.Distance, r.ProviderID)
	}
	return w.Flush()
}

func init() {
	pickCmd.Flags().StringVar(&pickMood, "mood", string(mood.Surprise), "mood id, as listed by the moods command")
	pickCmd.Flags().StringVar(&pickZip, "zip", "", "US ZIP code")
	pickCmd.Flags().Float64Var(&pickLat, "lat", 0, "latitude")
	pickCmd.Flags().Float64Var(&pickLng, "lng", 0, "longitude")
	pickCmd.Flags().IntVar(&pickRadius, "radius", 0, "search radius in meters (default from config)")
	pickCmd.Flags().BoolVar(&pickReroll, "reroll", false, "pick the runner-up instead of the best match")
	pickCmd.Flags().BoolVar(&pickJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(pickCmd)
}

package main

import (
	"context"
	"io"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vibepick/internal/location"
)

var (
	locateZip string
	locateLat float64
	locateLng float64
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve a ZIP code or coordinates to a labeled location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("locate"); err != nil {
			return err
		}
		env, err := initApp(cfg)
		if err != nil {
			return err
		}

		loc, err := resolveLocation(cmd.Context(), env.Resolver, locationFlags{
			zip:    locateZip,
			lat:    locateLat,
			lng:    locateLng,
			hasLat: cmd.Flags().Changed("lat"),
			hasLng: cmd.Flags().Changed("lng"),
		})
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), loc)
	},
}

// locationFlags is the location input shared by locate and pick.
type locationFlags struct {
	zip    string
	lat    float64
	lng    float64
	hasLat bool
	hasLng bool
}

func resolveLocation(ctx context.Context, r *location.Resolver, f locationFlags) (location.UserLocation, error) {
	switch {
	case f.zip != "" && (f.hasLat || f.hasLng):
		return location.UserLocation{}, eris.New("use either --zip or --lat/--lng, not both")
	case f.zip != "":
		return r.FromPostalCode(ctx, f.zip)
	case f.hasLat && f.hasLng:
		return r.FromCoordinates(ctx, f.lat, f.lng)
	case f.hasLat || f.hasLng:
		return location.UserLocation{}, eris.New("--lat and --lng must be given together")
	default:
		return location.UserLocation{}, eris.New("a location is required: --zip or --lat/--lng")
	}
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	locateCmd.Flags().StringVar(&locateZip, "zip", "", "US ZIP code (12345 or 12345-6789)")
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "latitude")
	locateCmd.Flags().Float64Var(&locateLng, "lng", 0, "longitude")
	rootCmd.AddCommand(locateCmd)
}

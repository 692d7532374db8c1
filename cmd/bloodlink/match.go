package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"
	"bloodlink/internal/match"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var matchCommand = &cli.Command{
	Name:  "match",
	Usage: "Run the donor match filter against the database",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "blood-type", Aliases: []string{"b"}, Usage: "Blood type to match, or all", Value: types.MatchWildcard},
		&cli.StringFlag{Name: "availability", Aliases: []string{"a"}, Usage: "Availability to match, or all", Value: types.MatchWildcard},
		&cli.Float64Flag{Name: "lat", Usage: "Requester latitude"},
		&cli.Float64Flag{Name: "lng", Usage: "Requester longitude"},
		&cli.Float64Flag{Name: "max-distance-km", Aliases: []string{"d"}, Usage: "Only donors within this many kilometres"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Print at most this many results, 0 for all", Value: 20},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		q := types.MatchQuery{
			BloodType:          c.String("blood-type"),
			AvailabilityFilter: c.String("availability"),
		}
		if c.IsSet("lat") != c.IsSet("lng") {
			return fmt.Errorf("set both --lat and --lng, or neither")
		}
		if c.IsSet("lat") {
			q.RequesterLocation = &types.Location{Lat: c.Float64("lat"), Lng: c.Float64("lng")}
		}
		if c.IsSet("max-distance-km") {
			km := c.Float64("max-distance-km")
			q.MaxDistanceKm = &km
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		donors, err := store.NewDonorRepository(pool).AllDonors(ctx)
		if err != nil {
			return err
		}

		result := match.Match(q, donors)
		fmt.Printf("%d of %d donors matched\n", len(result), len(donors))

		if limit := c.Int("limit"); limit > 0 && len(result) > limit {
			result = result[:limit]
		}

		for _, m := range result {
			row := map[string]any{
				"id":           m.Donor.ID,
				"name":         m.Donor.FullName,
				"blood_type":   m.Donor.BloodType,
				"availability": m.Donor.Availability,
			}
			if m.DistanceKm != nil {
				row["distance_km"] = fmt.Sprintf("%.2f", *m.DistanceKm)
			}
			pp.Println(row)
		}

		return nil
	},
}

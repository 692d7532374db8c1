package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"
	"bloodlink/internal/seed"
	"bloodlink/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with users, organizations and donors",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete seeded donors before seeding again",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		logrus.Info("Seeding users...")
		if err := seed.SeedFakeUsers(ctx, store.NewUserRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		logrus.Info("Seeding organizations...")
		if err := seed.SeedFakeOrganizations(ctx, store.NewOrganizationRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed organizations: %w", err)
		}

		logrus.Info("Seeding donors...")
		if err := seed.SeedFakeDonors(ctx, store.NewDonorRepository(pool), c.Bool("reset")); err != nil {
			return fmt.Errorf("failed to seed donors: %w", err)
		}

		logrus.Info("Seed data loaded successfully")

		return nil
	},
}

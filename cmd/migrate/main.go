package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/communitytime/allocation-api/internal/db"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "allocation-migrate"
	app.Usage = "schema migrations for the allocation database"

	dsnFlag := cli.StringFlag{
		Name:   "dsn",
		Usage:  "Postgres connection string",
		EnvVar: "DB_DSN,DATABASE_URL",
	}

	app.Commands = []cli.Command{
		{
			Name:  "up",
			Usage: "Apply every pending migration",
			Flags: []cli.Flag{dsnFlag},
			Action: func(clictx *cli.Context) error {
				return withMigrator(clictx, func(m *db.Migrator) error {
					return m.Up()
				})
			},
		},
		{
			Name:  "down",
			Usage: "Roll back migrations",
			Flags: []cli.Flag{dsnFlag, cli.IntFlag{Name: "steps", Usage: "number of migrations to roll back", Value: 1}},
			Action: func(clictx *cli.Context) error {
				steps := clictx.Int("steps")
				return withMigrator(clictx, func(m *db.Migrator) error {
					if err := m.Down(steps); err != nil {
						return err
					}
					log.Info().Int("steps", steps).Msg("migrations rolled back")
					return nil
				})
			},
		},
		{
			Name:  "version",
			Usage: "Print the current schema version",
			Flags: []cli.Flag{dsnFlag},
			Action: func(clictx *cli.Context) error {
				return withMigrator(clictx, func(m *db.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Printf("version %d (dirty=%v)\n", version, dirty)
					return nil
				})
			},
		},
	}

	app.Action = func(clictx *cli.Context) error {
		fmt.Printf("Must specify command. Run `%s help` for info\n", app.Name)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func withMigrator(clictx *cli.Context, fn func(*db.Migrator) error) error {
	dsn := strings.TrimSpace(clictx.String("dsn"))
	if dsn == "" {
		return errors.New("set --dsn or DB_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return fn(migrator)
}

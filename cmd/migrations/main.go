package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/mylibrary/mylibrary/pkg/database"
	"github.com/mylibrary/mylibrary/pkg/migrations"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	migrator := migrations.NewMigrator(db)

	app := &cli.App{
		Name:        "migrations",
		Usage:       "manage the library database schema",
		Description: "Applies, rolls back, and scaffolds the server's bun migrations. The server also applies pending migrations on boot.",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create the bun_migrations bookkeeping tables",
				Action: func(c *cli.Context) error {
					return migrator.Init(c.Context)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply every pending migration as one group",
				Action: func(c *cli.Context) error {
					group, err := migrator.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("Schema is up to date")
						return nil
					}
					fmt.Printf("Applied %s\n", group)
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "undo the most recent migration group",
				Action: func(c *cli.Context) error {
					group, err := migrator.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("Nothing has been applied yet")
						return nil
					}
					fmt.Printf("Undid %s\n", group)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "undo every group, then apply from scratch (refused in production)",
				Action: func(c *cli.Context) error {
					if cfg.Environment == "production" {
						return cli.Exit("refusing to reset a production database", 1)
					}
					for {
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							break
						}
						fmt.Printf("Undid %s\n", group)
					}

					group, err := migrator.Migrate(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Applied %s\n", group)
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "scaffold a Go migration in pkg/migrations",
				ArgsUsage: "<words of the migration name>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("a migration name is required", 1)
					}
					name := strings.ToLower(strings.Join(c.Args().Slice(), "_"))
					mf, err := migrator.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
					if err != nil {
						return err
					}
					fmt.Printf("Wrote %s to %s\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "show applied and pending migrations",
				Action: func(c *cli.Context) error {
					ms, err := migrator.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Known: %s\n", ms)
					fmt.Printf("Pending: %s\n", ms.Unapplied())
					fmt.Printf("Latest group: %s\n", ms.LastGroup())
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("migrations failed")
	}
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`

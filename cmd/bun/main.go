package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Black-And-White-Club/counting-bot/app"
	"github.com/Black-And-White-Club/counting-bot/config"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "bun",
		Usage: "counting-bot database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			newMultiModuleDBCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*bun.DB, *config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	return bun.NewDB(pgdb, pgdialect.New()), cfg, nil
}

// withMigrators runs fn against every module migrator, or only the one named
// by --module.
func withMigrators(c *cli.Context, fn func(module string, m *migrate.Migrator) error) error {
	db, _, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	only := c.String("module")
	matched := false
	for _, mm := range app.Migrators(db) {
		if only != "" && mm.Module != only {
			continue
		}
		matched = true
		if err := fn(mm.Module, mm.Migrator); err != nil {
			return err
		}
	}
	if !matched {
		return fmt.Errorf("invalid module name: %s", only)
	}
	return nil
}

func findMigrator(c *cli.Context, db *bun.DB) (*migrate.Migrator, error) {
	moduleName := c.Args().First()
	for _, mm := range app.Migrators(db) {
		if mm.Module == moduleName {
			return mm.Migrator, nil
		}
	}
	return nil, fmt.Errorf("invalid module name: %s", moduleName)
}

func newMultiModuleDBCommand() *cli.Command {
	moduleFlag := &cli.StringFlag{Name: "module", Usage: "limit the command to one module"}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(module string, m *migrate.Migrator) error {
						fmt.Printf("Initializing migrations for module: %s\n", module)
						return m.Init(c.Context)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(module string, m *migrate.Migrator) error {
						if err := m.Init(c.Context); err != nil {
							return err
						}
						group, err := m.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", module)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", module, group)
						}
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(module string, m *migrate.Migrator) error {
						group, err := m.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", module)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", module, group)
						}
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(module string, m *migrate.Migrator) error {
						ms, err := m.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Module %s:\n", module)
						fmt.Printf("  migrations: %s\n", ms)
						fmt.Printf("  unapplied migrations: %s\n", ms.Unapplied())
						fmt.Printf("  last migration group: %s\n", ms.LastGroup())
						return nil
					})
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					db, _, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					migrator, err := findMigrator(c, db)
					if err != nil {
						return err
					}
					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", c.Args().First(), mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "river",
				Usage: "migrate the job queue tables",
				Action: func(c *cli.Context) error {
					db, cfg, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()
					return migrateRiver(c.Context, cfg.Postgres.DSN)
				},
			},
		},
	}
}

func migrateRiver(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	migrator, err := rivermigrate.New(riverpgxv5.New(nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.MigrateTx(ctx, tx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("failed to migrate river tables: %w", err)
	}
	for _, v := range res.Versions {
		fmt.Printf("Applied river migration: %d\n", v.Version)
	}
	return tx.Commit(ctx)
}

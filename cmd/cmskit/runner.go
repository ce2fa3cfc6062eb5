/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/cmskit/content"
	"github.com/tomoncle/cmskit/database"
	"github.com/tomoncle/cmskit/types"
	"github.com/tomoncle/cmskit/utils"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Runner holds the dependencies of the CLI commands.
type Runner struct {
	logger *logrus.Logger
	output io.Writer
}

type RunnerOpts struct {
	Logger *logrus.Logger
	Output io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger("CMSKIT")
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "cmskit",
		Usage:   "Manage the CMS content database",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML configuration file",
				Value:   "cmskit.yaml",
				Sources: cli.EnvVars("CMSKIT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with DB_* overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
				Value: "info",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			utils.ConfigureLogLevel(cmd.String("log-level"))
			if err := godotenv.Load(cmd.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return ctx, fmt.Errorf("failed to load env file: %w", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the content tables and indexes",
				Action: r.Migrate,
			},
			{
				Name:   "health",
				Usage:  "Ping the database and print pool statistics",
				Action: r.Health,
			},
			{
				Name:  "pages",
				Usage: "List pages, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Only pages authored by this user id",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-based page number",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Page size, at most 100",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.Pages,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: r.Config,
			},
		},
	}
}

// loadConfig reads the configured file when it exists and falls back to
// defaults otherwise.
func (r *Runner) loadConfig(cmd *cli.Command) (*database.Config, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		r.logger.WithField("path", path).Debug("config file not found, using defaults")
		return database.DefaultConfig(), nil
	}
	return database.LoadConfig(path)
}

func (r *Runner) open(cmd *cli.Command, migrate bool) (*database.Config, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	content.Register()
	if _, err := database.InitDatabaseWithOptions(cfg, migrate || cfg.EnableMigrateOnStartup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Migrate applies pending migrations and lists the applied versions.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.open(cmd, true); err != nil {
		return err
	}
	defer database.CloseDB()

	applied, err := database.NewMigrationManager(database.GetDB(), nil).GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Fprintf(r.output, "%s  %-20s %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Health prints the health status and pool statistics as YAML.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.open(cmd, false); err != nil {
		return err
	}
	defer database.CloseDB()

	report := struct {
		Health *database.HealthStatus `yaml:"health"`
		Stats  *database.DBStats      `yaml:"stats"`
	}{
		Health: database.GetHealthStatus(ctx),
		Stats:  database.GetDatabaseStats(),
	}
	if err := r.writeYAML(report); err != nil {
		return err
	}
	if !report.Health.Healthy {
		return fmt.Errorf("database unhealthy: %s", report.Health.LastError)
	}
	return nil
}

// Pages prints one page of pages.
func (r *Runner) Pages(ctx context.Context, cmd *cli.Command) error {
	var owner uuid.UUID
	if s := cmd.String("owner"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid owner id: %w", err)
		}
		owner = id
	}

	if _, err := r.open(cmd, false); err != nil {
		return err
	}
	defer database.CloseDB()

	store, err := content.NewPageStore(database.GetDB())
	if err != nil {
		return err
	}
	var result *types.Pagination[content.Page]
	if owner != uuid.Nil {
		result, err = store.GetAllByOwnerPaged(ctx, owner, cmd.Int("page"), cmd.Int("size"))
	} else {
		result, err = store.GetAllPaged(ctx, cmd.Int("page"), cmd.Int("size"))
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(r.output)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return r.writePageTable(result)
}

// Config prints the effective configuration with the password masked.
func (r *Runner) Config(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	return r.writeYAML(cfg)
}

func (r *Runner) writePageTable(result *types.Pagination[content.Page]) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NO", "TITLE", "PATH", "HOME", "CREATED")
	for _, p := range result.Items {
		home := ""
		if p.ShowInHome {
			home = "*"
		}
		t.Row(strconv.Itoa(p.PageNo), p.Title, p.PublicPath(), home, p.CreatedTime.Format("2006-01-02 15:04"))
	}
	_, err := fmt.Fprintf(r.output, "%s\npage %d of %d, %d total\n",
		t.String(), result.Page, result.TotalPages(), result.Total)
	return err
}

func (r *Runner) writeYAML(v any) error {
	enc := yaml.NewEncoder(r.output)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

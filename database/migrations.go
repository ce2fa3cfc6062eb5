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

package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Migration is a row of cms_migrations, one per applied version.
type Migration struct {
	bun.BaseModel `bun:"table:cms_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is one schema step. It runs inside the transaction that also
// records the version.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// schemaMigrations are the content schema versions, oldest first.
var schemaMigrations = []MigrationItem{
	{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create tables for registered models",
		Up:          createModelTables,
	},
	{
		Version:     "002",
		Name:        "create_indexes",
		Description: "Create indexes declared by registered models",
		Up:          createModelIndexes,
	},
}

// MigrationManager brings a database up to the latest schema version.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	items  []MigrationItem
}

func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	items := append([]MigrationItem(nil), schemaMigrations...)
	sort.Slice(items, func(i, j int) bool { return items[i].Version < items[j].Version })
	return &MigrationManager{db: db, logger: logger, items: items}
}

// RunMigrations applies every version not yet recorded, each in its own
// transaction. Query logging is muted unless BUNDEBUG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return errNotInitialized
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		SetSilent(true)
		defer SetSilent(false)
	}

	applied, err := mm.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for _, item := range mm.items {
		if applied[item.Version] {
			continue
		}
		if err := mm.apply(ctx, item); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", item.Version, err)
		}
		mm.logger.Info("Migration executed successfully", "version", item.Version, "name", item.Name)
	}
	mm.logger.Info("Database migrations completed!")
	return nil
}

// GetAppliedMigrations lists the recorded migrations, oldest version first.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	if err := mm.ensureTable(ctx); err != nil {
		return nil, err
	}
	var applied []Migration
	if err := mm.db.NewSelect().Model(&applied).Order("version ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return applied, nil
}

func (mm *MigrationManager) appliedVersions(ctx context.Context) (map[string]bool, error) {
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	versions := make(map[string]bool, len(applied))
	for _, m := range applied {
		versions[m.Version] = true
	}
	return versions, nil
}

func (mm *MigrationManager) ensureTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (mm *MigrationManager) apply(ctx context.Context, item MigrationItem) error {
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := item.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     item.Version,
				Name:        item.Name,
				AppliedAt:   time.Now().UTC(),
				Description: item.Description,
			}).
			Exec(ctx)
		return err
	})
}

func createModelTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func createModelIndexes(ctx context.Context, db bun.IDB) error {
	for _, model := range GetRegisteredModels() {
		for _, index := range model.Indexes() {
			_, err := db.NewCreateIndex().
				Model(model.Instance()).
				Index(index.Name).
				Column(index.Columns...).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create index %s: %w", index.Name, err)
			}
		}
	}
	return nil
}

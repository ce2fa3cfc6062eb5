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
	"testing"
	"time"

	"github.com/uptrace/bun"
)

type migrationProbe struct {
	bun.BaseModel `bun:"table:migration_probe"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at"`
}

func init() {
	RegisteredModel(NewModelAdapter((*migrationProbe)(nil), 10,
		Index{Name: "idx_migration_probe_name", Columns: []string{"name"}}))
	// Registering the same type again is ignored.
	RegisteredModel(NewModelAdapter((*migrationProbe)(nil), 1))
}

func memoryConfig() *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = MemoryDBName
	cfg.HealthCheckInterval = 0
	cfg.SlowQueryTime = 0
	return cfg
}

func connectMemory(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	dm := NewDatabaseManager(memoryConfig())
	if err := dm.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = dm.Disconnect() })
	return dm
}

func TestModelRegistryOrder(t *testing.T) {
	r := newModelRegistry()
	type a struct{}
	type b struct{}
	r.Register(NewModelAdapter(&b{}, 2))
	r.Register(NewModelAdapter(&a{}, 1))
	r.Register(NewModelAdapter(&a{}, 0))

	models := r.Models()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if _, ok := models[0].Instance().(*a); !ok || models[0].Priority() != 1 {
		t.Errorf("first model = %T priority %d", models[0].Instance(), models[0].Priority())
	}
}

func TestRunMigrations(t *testing.T) {
	dm := connectMemory(t)
	ctx := context.Background()

	if err := dm.RunMigrations(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := dm.RunMigrations(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	mm := NewMigrationManager(dm.GetDB(), nil)
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "001" || applied[1].Version != "002" {
		t.Fatalf("applied = %+v", applied)
	}
	if applied[0].Name != "create_base_tables" || applied[0].AppliedAt.IsZero() {
		t.Errorf("first migration = %+v", applied[0])
	}

	db := dm.GetDB()
	if _, err := db.NewInsert().Model(&migrationProbe{Name: "probe", CreatedAt: time.Now()}).Exec(ctx); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
	var indexes int
	err = db.NewSelect().
		TableExpr("sqlite_master").
		ColumnExpr("count(*)").
		Where("type = ?", "index").
		Where("name = ?", "idx_migration_probe_name").
		Scan(ctx, &indexes)
	if err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if indexes != 1 {
		t.Errorf("index count = %d, want 1", indexes)
	}
}

func TestManagerHealthAndStats(t *testing.T) {
	dm := connectMemory(t)

	status := dm.HealthCheck(context.Background())
	if !status.Healthy || !status.Connected {
		t.Fatalf("unhealthy: %+v", status)
	}
	if status.MaxOpenConns != 1 {
		t.Errorf("memory database must use one connection, got %d", status.MaxOpenConns)
	}
	if stats := dm.GetStats(); stats.MaxOpenConns != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if err := dm.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if dm.GetDB() != nil {
		t.Error("db still set after disconnect")
	}
	if err := dm.Ping(context.Background()); err == nil {
		t.Error("ping after disconnect must fail")
	}
	if status := dm.HealthCheck(context.Background()); status.Healthy {
		t.Error("disconnected manager reported healthy")
	}
}

func TestInitDatabaseGlobals(t *testing.T) {
	cfg := &Config{ConnectionConfig: *memoryConfig()}
	t.Setenv("DB_TYPE", "")
	t.Setenv("DB_NAME", "")

	if err := RunMigrations(context.Background()); err == nil {
		t.Fatal("expected an error before InitDB")
	}
	db, err := InitDatabaseWithOptions(cfg, true)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = CloseDB() })

	if GetDB() != db || DB != db {
		t.Error("globals not set")
	}
	if GetDatabaseManager() == nil || GetDatabaseFactory() == nil {
		t.Error("manager or factory not set")
	}
	if !GetHealthStatus(context.Background()).Healthy {
		t.Error("expected healthy database")
	}
	if err := RunMigrations(context.Background()); err != nil {
		t.Errorf("re-running migrations: %v", err)
	}

	if err := CloseDB(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if GetDB() != nil || GetHealthStatus(context.Background()).Healthy {
		t.Error("globals survived CloseDB")
	}
}

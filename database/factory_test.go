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
	"strings"
	"testing"
	"time"
)

func TestFactoryOverridesFromEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_SLOW_QUERY_MS", "150")

	cfg := &ConnectionConfig{Type: "oracle", Port: 1}
	if _, err := NewDatabaseFactory().CreateFromConfig(cfg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if cfg.Type != "postgres" || cfg.Driver != "pgx" || cfg.Host != "pg.internal" || cfg.Port != 6543 {
		t.Errorf("connection not overridden: %+v", cfg)
	}
	if cfg.Password != "from-env" || cfg.MaxOpenConns != 7 || cfg.ConnMaxLifetime != 90*time.Second {
		t.Errorf("pool or credentials not overridden: %+v", cfg)
	}
	if !cfg.EnableQueryLog || cfg.SlowQueryTime != 150*time.Millisecond {
		t.Errorf("logging not overridden: %+v", cfg)
	}
}

func TestFactoryRejectsUnsupportedType(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	_, err := NewDatabaseFactory().CreateFromConfig(&ConnectionConfig{Type: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported database type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
	if _, err := NewDatabaseFactory().CreateFromConfig(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestFactoryWithoutManager(t *testing.T) {
	f := NewDatabaseFactory()
	if f.GetDB() != nil {
		t.Error("expected no database")
	}
	if status := f.GetHealthStatus(context.Background()); status.Healthy {
		t.Error("uninitialized factory reported healthy")
	}
	if err := f.InitializeDatabase(context.Background(), false); err == nil {
		t.Error("expected an error without a manager")
	}
	if err := f.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

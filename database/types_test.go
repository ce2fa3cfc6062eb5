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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "cmskit.yaml", `
connection_config:
  type: postgres
  driver: pgx
  host: db.local
  port: 5432
  dbname: cms
  slow_query_time: 250ms
enable_migrate_on_startup: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cc := cfg.ConnectionConfig
	if cc.Type != "postgres" || cc.Driver != "pgx" || cc.Host != "db.local" || cc.Port != 5432 || cc.DBName != "cms" {
		t.Errorf("unexpected connection config: %+v", cc)
	}
	if cc.SlowQueryTime != 250*time.Millisecond {
		t.Errorf("slow query time = %s", cc.SlowQueryTime)
	}
	if !cfg.EnableMigrateOnStartup {
		t.Error("migrate on startup not read")
	}
	if cc.MaxOpenConns != DefaultConnectionConfig().MaxOpenConns {
		t.Errorf("missing values must keep defaults, max open = %d", cc.MaxOpenConns)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "cmskit.toml", `
enable_migrate_on_startup = true

[connection_config]
type = "mysql"
host = "127.0.0.1"
port = 3306
username = "cms"
dbname = "content"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cc := cfg.ConnectionConfig
	if cc.Type != "mysql" || cc.Port != 3306 || cc.Username != "cms" || cc.DBName != "content" {
		t.Errorf("unexpected connection config: %+v", cc)
	}
	if !cfg.EnableMigrateOnStartup {
		t.Error("migrate on startup not read")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(writeFile(t, "cmskit.ini", "type=sqlite")); err == nil ||
		!strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
	if _, err := LoadConfig(writeFile(t, "broken.yaml", "connection_config: [")); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected a read error")
	}
}

func TestConfigMarshalYAMLMasksPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Password = "s3cret"
	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "s3cret") {
		t.Fatalf("password leaked:\n%s", out)
	}
	if !strings.Contains(string(out), "******") {
		t.Errorf("password not masked:\n%s", out)
	}
	if cfg.ConnectionConfig.Password != "s3cret" {
		t.Error("marshalling must not modify the config")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		MemoryDBName:            "file::memory:?cache=shared",
		"cms":                   "cms.db",
		"data/cms.db":           "data/cms.db",
		"file:cms.db?cache=pri": "file:cms.db?cache=pri",
	}
	for in, want := range tests {
		if got := SQLiteDSN(in); got != want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

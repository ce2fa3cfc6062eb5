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
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// BaseDatabaseFactory turns a ConnectionConfig into a connected manager.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// envOverride reads one DB_* variable into a config field. Values that do
// not parse are ignored.
type envOverride struct {
	key   string
	apply func(cfg *ConnectionConfig, value string) error
}

func stringEnv(key string, field func(*ConnectionConfig) *string) envOverride {
	return envOverride{key, func(cfg *ConnectionConfig, v string) error {
		*field(cfg) = v
		return nil
	}}
}

func intEnv(key string, field func(*ConnectionConfig) *int) envOverride {
	return envOverride{key, func(cfg *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			*field(cfg) = n
		}
		return err
	}}
}

func boolEnv(key string, field func(*ConnectionConfig) *bool) envOverride {
	return envOverride{key, func(cfg *ConnectionConfig, v string) error {
		*field(cfg) = v == "true"
		return nil
	}}
}

// durationEnv reads a whole number of units.
func durationEnv(key string, unit time.Duration, field func(*ConnectionConfig) *time.Duration) envOverride {
	return envOverride{key, func(cfg *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			*field(cfg) = time.Duration(n) * unit
		}
		return err
	}}
}

var envOverrides = []envOverride{
	stringEnv("DB_TYPE", func(c *ConnectionConfig) *string { return &c.Type }),
	stringEnv("DB_DRIVER", func(c *ConnectionConfig) *string { return &c.Driver }),
	stringEnv("DB_HOST", func(c *ConnectionConfig) *string { return &c.Host }),
	intEnv("DB_PORT", func(c *ConnectionConfig) *int { return &c.Port }),
	stringEnv("DB_USERNAME", func(c *ConnectionConfig) *string { return &c.Username }),
	stringEnv("DB_PASSWORD", func(c *ConnectionConfig) *string { return &c.Password }),
	stringEnv("DB_NAME", func(c *ConnectionConfig) *string { return &c.DBName }),
	stringEnv("DB_SSLMODE", func(c *ConnectionConfig) *string { return &c.SSLMode }),
	intEnv("DB_MAX_IDLE_CONNS", func(c *ConnectionConfig) *int { return &c.MaxIdleConns }),
	intEnv("DB_MAX_OPEN_CONNS", func(c *ConnectionConfig) *int { return &c.MaxOpenConns }),
	durationEnv("DB_CONN_MAX_LIFETIME", time.Second, func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime }),
	boolEnv("DB_ENABLE_RECONNECT", func(c *ConnectionConfig) *bool { return &c.EnableReconnect }),
	durationEnv("DB_RECONNECT_INTERVAL", time.Second, func(c *ConnectionConfig) *time.Duration { return &c.ReconnectInterval }),
	boolEnv("DB_ENABLE_QUERY_LOG", func(c *ConnectionConfig) *bool { return &c.EnableQueryLog }),
	durationEnv("DB_SLOW_QUERY_MS", time.Millisecond, func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime }),
}

// CreateFromConfig applies the DB_* environment overrides to cfg and
// returns a manager for it. It does not connect.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f.overrideFromEnv(cfg)

	if _, ok := connectorFor(cfg.Type); !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes())
	}
	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	for _, o := range envOverrides {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			f.logger.Warn("Ignoring invalid environment override", "key", o.key, "error", err)
		}
	}
}

func supportedTypes() []string {
	types := make([]string, 0, len(connectors))
	for t := range connectors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// InitializeDatabase connects and, when asked, applies pending migrations.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database, or nil before CreateFromConfig.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}

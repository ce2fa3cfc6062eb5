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

package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Conn is the part of *sql.Conn the repository executes statements on.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Close() error
}

// ConnFactory produces one live connection per call. It must be safe for
// concurrent use; the repository closes every connection it receives.
type ConnFactory func(ctx context.Context) (Conn, error)

// FactoryFromDB hands out connections from the pool of db. Closing one
// returns it to the pool.
func FactoryFromDB(db *sql.DB) ConnFactory {
	return func(ctx context.Context) (Conn, error) {
		return db.Conn(ctx)
	}
}

// FactoryFromDSN opens a dedicated database handle for every call and closes
// it together with the connection, so nothing outlives the operation.
func FactoryFromDSN(driverName, dsn string) ConnFactory {
	return func(ctx context.Context) (Conn, error) {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
		return &dedicatedConn{Conn: conn, db: db}, nil
	}
}

type dedicatedConn struct {
	*sql.Conn
	db *sql.DB
}

func (c *dedicatedConn) Close() error {
	return errors.Join(c.Conn.Close(), c.db.Close())
}

// withConn runs fn on a fresh connection and releases it on every exit path.
func withConn(ctx context.Context, factory ConnFactory, fn func(Conn) error) (err error) {
	conn, err := factory(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = &ConnectionError{Err: cerr}
		}
	}()
	return fn(conn)
}

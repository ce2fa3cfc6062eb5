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
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type article struct {
	bun.BaseModel `bun:"table:Article"`

	Id          uuid.UUID `bun:"Id,pk,type:varchar(36)"`
	UserId      uuid.UUID `bun:"UserId,type:varchar(36)"`
	Title       string    `bun:"Title"`
	Views       int       `bun:"Views"`
	CreatedTime time.Time `bun:"CreatedTime"`
	Draft       string    `bun:"-"`
}

func (a article) GetId() uuid.UUID          { return a.Id }
func (a article) GetCreatedTime() time.Time { return a.CreatedTime }

// tag has no column names in its tags, so they come from the Go fields. It
// is only described, never stored.
type tag struct {
	Id          uuid.UUID `bun:",pk,type:varchar(36)"`
	Name        string
	CreatedTime time.Time
}

func (t tag) GetId() uuid.UUID          { return t.Id }
func (t tag) GetCreatedTime() time.Time { return t.CreatedTime }

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// openTestDB opens a private in-memory SQLite database with the Article
// table created.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*article)(nil)).Exec(ctx); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func newArticleRepo(t *testing.T, db *bun.DB) Repository[article] {
	t.Helper()
	repo, err := NewRepositoryFromDB[article](db)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo
}

// seedArticles inserts n articles owned by owner, one minute apart starting
// at start, and returns them oldest first.
func seedArticles(t *testing.T, repo Repository[article], owner uuid.UUID, start time.Time, n int) []*article {
	t.Helper()
	ctx := context.Background()
	items := make([]*article, 0, n)
	for i := 0; i < n; i++ {
		a := &article{
			Id:          uuid.New(),
			UserId:      owner,
			Title:       fmt.Sprintf("article %d", i),
			Views:       i,
			CreatedTime: start.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, a); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		items = append(items, a)
	}
	return items
}

func ids(items []*article) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, a := range items {
		out[i] = a.Id
	}
	return out
}

// countingFactory tracks how many connections are handed out and closed.
type countingFactory struct {
	inner  ConnFactory
	opened atomic.Int32
	closed atomic.Int32
}

func (f *countingFactory) factory(ctx context.Context) (Conn, error) {
	conn, err := f.inner(ctx)
	if err != nil {
		return nil, err
	}
	f.opened.Add(1)
	return &countedConn{Conn: conn, closed: &f.closed}, nil
}

type countedConn struct {
	Conn
	closed *atomic.Int32
}

func (c *countedConn) Close() error {
	c.closed.Add(1)
	return c.Conn.Close()
}

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
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

func TestQueryHook(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	ok := &bun.QueryEvent{Query: `SELECT * FROM "Page"`, StartTime: time.Now()}
	noRows := &bun.QueryEvent{Query: `SELECT * FROM "Page"`, StartTime: time.Now(), Err: sql.ErrNoRows}
	failed := &bun.QueryEvent{Query: `INSERT INTO "Page"`, StartTime: time.Now(), Err: errors.New("UNIQUE constraint failed")}

	tests := []struct {
		name    string
		verbose bool
		env     string
		event   *bun.QueryEvent
		want    string
	}{
		{"quiet success", false, "", ok, ""},
		{"quiet no rows", false, "", noRows, ""},
		{"quiet failure", false, "", failed, "UNIQUE constraint failed"},
		{"verbose success", true, "", ok, `SELECT * FROM "Page"`},
		{"env disables", true, "0", failed, ""},
		{"env verbose", false, "2", ok, "[SQL]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv(QueryLogEnv, tt.env)
			}
			var buf bytes.Buffer
			NewQueryHook(&buf, tt.verbose).AfterQuery(context.Background(), tt.event)
			if tt.want == "" {
				if buf.Len() != 0 {
					t.Errorf("unexpected output %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestQueryHookSilent(t *testing.T) {
	SetSilent(true)
	defer SetSilent(false)

	var buf bytes.Buffer
	event := &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now(), Err: errors.New("boom")}
	NewQueryHook(&buf, true).AfterQuery(context.Background(), event)
	if buf.Len() != 0 {
		t.Errorf("silent hook printed %q", buf.String())
	}
}

type recordingLogger struct {
	warnings []string
	fields   [][]interface{}
}

func (l *recordingLogger) SetLevel(LogLevel) {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{}) {}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.warnings = append(l.warnings, msg)
	l.fields = append(l.fields, fields)
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	hook := NewSlowQueryHook(time.Second, logger)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now().Add(-2 * time.Second), Err: errors.New("x")})
	if len(logger.warnings) != 0 {
		t.Fatalf("unexpected warnings %v", logger.warnings)
	}

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 3", StartTime: time.Now().Add(-2 * time.Second)})
	if len(logger.warnings) != 1 || logger.warnings[0] != "Slow query detected" {
		t.Fatalf("warnings = %v", logger.warnings)
	}
	fields := logger.fields[0]
	if fields[len(fields)-2] != "query" || fields[len(fields)-1] != "SELECT 3" {
		t.Errorf("fields = %v", fields)
	}
}

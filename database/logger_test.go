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
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaultLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	lg := logrus.New()
	lg.SetOutput(&buf)
	lg.SetFormatter(&logrus.JSONFormatter{})
	lg.SetLevel(logrus.DebugLevel)

	l := &DefaultLogger{logger: lg}
	l.Info("Database connected", "type", "sqlite", "port", 0, 42, "ignored", "dangling")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Database connected" || entry["type"] != "sqlite" || entry["port"] != float64(0) {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["ignored"]; ok {
		t.Error("value of a non-string key was logged")
	}
	if _, ok := entry["dangling"]; ok {
		t.Error("key without a value was logged")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LogLevelDebug: "DEBUG",
		LogLevelInfo:  "INFO",
		LogLevelWarn:  "WARN",
		LogLevelError: "ERROR",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}

func TestGetLoggerIsShared(t *testing.T) {
	if GetLogger() != GetLogger() {
		t.Fatal("expected one package logger")
	}
}

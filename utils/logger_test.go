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

package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	first := NewLogger("TEST-ONCE")
	second := NewLogger("TEST-ONCE")
	if first != second {
		t.Fatal("expected the registered logger to be reused")
	}
	if !SetLoggerLevel("TEST-ONCE", "error") {
		t.Fatal("logger not found in registry")
	}
	if first.GetLevel() != logrus.ErrorLevel {
		t.Errorf("level = %s, want error", first.GetLevel())
	}
	if SetLoggerLevel("TEST-MISSING", "debug") {
		t.Error("unknown logger reported as registered")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestConsoleFormatter(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	f := &ConsoleFormatter{LoggerName: "REPOSITORY-LAYER", NameWidth: 8}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow query",
		Data:    logrus.Fields{"table": "Page", "duration": "3s"},
	}
	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)
	for _, want := range []string{
		"2025-01-02 15:04:05.000",
		"WARNING",
		"[REPOSITO]",
		": slow query duration=3s table=Page\n",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("%q does not contain %q", line, want)
		}
	}
}

func TestConfigureLogOutput(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger("TEST-OUTPUT")
	ConfigureLogOutput(&buf)
	defer ConfigureLogOutput(nopStdout{})

	lg.SetLevel(logrus.InfoLevel)
	lg.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("output not redirected: %q", buf.String())
	}
}

// nopStdout discards output so later tests stay quiet.
type nopStdout struct{}

func (nopStdout) Write(p []byte) (int, error) { return len(p), nil }

func TestEnvDefaults(t *testing.T) {
	t.Setenv("CMSKIT_TEST_STRING", "value")
	t.Setenv("CMSKIT_TEST_BOOL", "true")
	t.Setenv("CMSKIT_TEST_BAD_BOOL", "sure")

	if got := EnvDefaultString("CMSKIT_TEST_STRING", "def"); got != "value" {
		t.Errorf("string = %q", got)
	}
	if got := EnvDefaultString("CMSKIT_TEST_UNSET", "def"); got != "def" {
		t.Errorf("unset string = %q", got)
	}
	if !EnvDefaultBool("CMSKIT_TEST_BOOL", false) {
		t.Error("bool not parsed")
	}
	if EnvDefaultBool("CMSKIT_TEST_BAD_BOOL", false) {
		t.Error("invalid bool must fall back to the default")
	}
}

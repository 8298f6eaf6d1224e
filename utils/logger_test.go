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
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestNewLoggerRegistry(t *testing.T) {
	a := NewLogger("REGISTRY_TEST")
	b := NewLogger("REGISTRY_TEST")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("REGISTRY_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING_LOGGER", "error"))
}

func newEntry(buf *bytes.Buffer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(buf)
	entry := logrus.NewEntry(l).WithField("user_name", "member1")
	entry.Time = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	entry.Level = logrus.InfoLevel
	entry.Message = "saved"
	return entry
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATASTUDY", NameWidth: 4, DisableColor: true}
	out, err := f.Format(newEntry(&bytes.Buffer{}))
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "   INFO")
	assert.Contains(t, line, "[DATA]")
	assert.Contains(t, line, ": saved user_name=member1\n")
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATASTUDY"}
	out, err := f.Format(newEntry(&bytes.Buffer{}))
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "DATASTUDY", rec["logger"])
	assert.Equal(t, "saved", rec["message"])
	assert.Equal(t, map[string]interface{}{"user_name": "member1"}, rec["fields"])
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "repository/member.go", shortPath("/root/module/repository/member.go"))
	assert.Equal(t, "main.go", shortPath("main.go"))
}

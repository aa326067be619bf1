// Copyright 2025 Sandeep Bazar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 🩹 PatchOperation represents one patch rule applied to a file, for logging.
type PatchOperation struct {
	Rule    string // Rule name
	Path    string // Target file path
	Changed bool   // Whether the file was modified
}

// 🎯 Logger handles structured logging alongside human console output. Every
// message goes to the console for the operator and to zerolog for anything
// that scrapes the output.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	section *pterm.SectionPrinter
	mu      sync.Mutex
}

// 🏭 New creates a new logger writing console output to console.
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	section := pterm.DefaultSection.WithWriter(console)
	return &Logger{
		zlog:    zlog,
		console: console,
		section: section,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 Header prints a stage banner.
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.section.Println(msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgCyan).Sprint("ℹ"), msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgYellow).Sprint("⚠"), color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgRed).Sprint("✗"), color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Plain writes raw text to the console, bypassing formatting. Used to echo
// subprocess output such as `git status` summaries.
func (l *Logger) Plain(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.console, text)
}

// 📝 LogPatchOperation logs the outcome of one patch rule.
func (l *Logger) LogPatchOperation(ctx context.Context, op PatchOperation) {
	status := "already present"
	symbol := color.New(color.FgCyan).Sprint("•")
	if op.Changed {
		status = "patched"
		symbol = color.New(color.FgGreen).Sprint("✓")
	}

	l.mu.Lock()
	fmt.Fprintf(l.console, "  %s %-35s %s\n", symbol, op.Path, color.New(color.Faint).Sprint(status))
	l.mu.Unlock()

	l.zlog.Info().
		Str("rule", op.Rule).
		Str("path", op.Path).
		Bool("changed", op.Changed).
		Msg("patch applied")
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}

package injector

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testLogger forwards log calls to the test output.
type testLogger struct {
	t *testing.T
}

func (l *testLogger) getCallerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	relPath, err := filepath.Rel(wd, file)
	if err != nil {
		relPath = file
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

func (l *testLogger) Info(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] %s", l.getCallerInfo(), msg), args)
}

func (l *testLogger) Error(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] ERROR %s", l.getCallerInfo(), msg), args)
}

func (l *testLogger) Warn(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] WARN %s", l.getCallerInfo(), msg), args)
}

func (l *testLogger) Debug(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] %s", l.getCallerInfo(), msg), args)
}

// MockLogger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func TestLogger_SlogSatisfiesInterface(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := NewContainer("app", WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, c.Set("db", NewObject("postgres")))
	assert.Contains(t, buf.String(), "Provider registered")
	assert.Contains(t, buf.String(), "container=app")
}

func TestLogger_WithLoggerRejectsNil(t *testing.T) {
	_, err := NewContainer("app", WithLogger(nil))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestLogger_Default(t *testing.T) {
	previous := DefaultLogger()
	t.Cleanup(func() { SetDefaultLogger(previous) })

	m := new(MockLogger)
	m.On("Warn", "Overriding with a bare value, wrapping it in an object provider", mock.Anything).Once()
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	SetDefaultLogger(m)
	SetDefaultLogger(nil)
	assert.Same(t, m, DefaultLogger())

	p := NewObject(1)
	require.NoError(t, p.Override(2))
	m.AssertExpectations(t)
}

func TestLogger_ContainerLoggerIsUsedByProviders(t *testing.T) {
	m := new(MockLogger)
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	m.On("Error", "Resource initialization failed", mock.Anything).Once()

	failing := NewResource(func() (int, error) { return 0, assert.AnError })
	c, err := NewContainer("app", WithLogger(m), WithProviders(Def("r", failing)))
	require.NoError(t, err)

	err = c.InitResources(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	m.AssertExpectations(t)
}

func TestLogger_TestLogger(t *testing.T) {
	c, err := NewContainer("app", WithLogger(&testLogger{t: t}))
	require.NoError(t, err)
	require.NoError(t, c.Set("r", NewResource(func() int { return 1 })))
	require.NoError(t, c.InitResources(context.Background()))
	require.NoError(t, c.ShutdownResources(context.Background()))
}

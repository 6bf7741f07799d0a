package logger

import (
	"github.com/stretchr/testify/mock"
)

type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// AllowAll registers optional expectations for every logging method so a
// test only needs to assert the calls it cares about.
func (m *MockLogger) AllowAll() *MockLogger {
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Maybe()
	}
	m.On("With", mock.Anything).Return(m).Maybe()
	m.On("With", mock.Anything, mock.Anything).Return(m).Maybe()
	m.On("Level").Return(InfoLevel).Maybe()

	return m
}

// CountCalls returns how many times method was called with msg.
func (m *MockLogger) CountCalls(method string, msg string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == method && len(call.Arguments) > 0 && call.Arguments[0] == msg {
			n++
		}
	}

	return n
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

func (m *MockLogger) With(keyValues ...any) Logger {
	args := m.Called(keyValues...)
	return args.Get(0).(Logger)
}

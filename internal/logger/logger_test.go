package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLoggerDefaultsToInfo() {
	l, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(l.Logger)
	suite.True(l.Core().Enabled(zapcore.InfoLevel))
	suite.False(l.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestWithLevelEnablesDebug() {
	l, err := NewLogger(WithLevel(zapcore.DebugLevel))
	suite.NoError(err)
	suite.True(l.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestWithConsoleOutput() {
	l, err := NewLogger(WithConsoleOutput())
	suite.NoError(err)
	suite.NotNil(l.Logger)

	// Must not panic with the console encoder.
	l.Info("console message")
}

func (suite *LoggerTestSuite) TestSyncWithoutCore() {
	l := &Logger{}
	suite.NoError(l.Sync())
}

func (suite *LoggerTestSuite) TestTestLoggerDiscards() {
	l := NewTestLogger()
	l.Info("dropped")
	suite.NoError(l.Sync())
}

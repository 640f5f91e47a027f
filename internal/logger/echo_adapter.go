package logger

import (
	"fmt"
	"io"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter routes Echo's own log output (startup errors, the default
// HTTP error handler) through a module Logger.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(log.Module("echo"))
type EchoLoggerAdapter struct {
	logger Logger
}

// NewEchoLoggerAdapter creates an adapter; a nil logger falls back to the
// global "echo" module logger.
func NewEchoLoggerAdapter(logger Logger) *EchoLoggerAdapter {
	if logger == nil {
		logger = Global().Module("echo")
	}
	return &EchoLoggerAdapter{logger: logger}
}

// Output, prefix, level and header are owned by the central logger
// configuration; the setters are no-ops.

func (a *EchoLoggerAdapter) Output() io.Writer         { return io.Discard }
func (a *EchoLoggerAdapter) SetOutput(io.Writer)       {}
func (a *EchoLoggerAdapter) Prefix() string            { return "" }
func (a *EchoLoggerAdapter) SetPrefix(string)          {}
func (a *EchoLoggerAdapter) Level() echo_log.Lvl       { return echo_log.INFO }
func (a *EchoLoggerAdapter) SetLevel(echo_log.Lvl)     {}
func (a *EchoLoggerAdapter) SetHeader(string)          {}
func (a *EchoLoggerAdapter) Print(i ...any)            { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Printf(f string, v ...any) { a.logger.Info(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Printj(j echo_log.JSON)    { a.logger.Info("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Debug(i ...any)            { a.logger.Debug(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Debugf(f string, v ...any) { a.logger.Debug(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON)    { a.logger.Debug("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Info(i ...any)             { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Infof(f string, v ...any)  { a.logger.Info(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON)     { a.logger.Info("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Warn(i ...any)             { a.logger.Warn(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Warnf(f string, v ...any)  { a.logger.Warn(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON)     { a.logger.Warn("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Error(i ...any)            { a.logger.Error(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Errorf(f string, v ...any) { a.logger.Error(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON)    { a.logger.Error("echo", Any("data", j)) }

// Fatal and Panic log at error level and panic; the Recover middleware turns
// a panic inside a handler into a 500 instead of exiting the process.

func (a *EchoLoggerAdapter) Fatal(i ...any)            { a.panic(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Fatalf(f string, v ...any) { a.panic(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON)    { a.panic(fmt.Sprintf("%v", j)) }
func (a *EchoLoggerAdapter) Panic(i ...any)            { a.panic(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Panicf(f string, v ...any) { a.panic(fmt.Sprintf(f, v...)) }
func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON)    { a.panic(fmt.Sprintf("%v", j)) }

func (a *EchoLoggerAdapter) panic(msg string) {
	a.logger.Error(msg)
	panic("echo: " + msg)
}

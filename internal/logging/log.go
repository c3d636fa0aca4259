// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package logging is the access/error audit log for the control/RPC
// skeleton: every GET/SET/TRAP that crosses the control channel is
// recorded here, independent of the klog-based diagnostic logging used
// inside the protocol state machines. It is kept as its own file-backed,
// channel-relayed logger because control-channel operators expect an
// append-only audit trail distinct from stderr noise.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// LogType selects which audit stream a message is appended to.
type LogType string

const (
	// Access records every successful GET/SET/TRAP.
	Access LogType = LogType("access")
	// Error records rejected or malformed control-channel requests.
	Error           LogType = LogType("error")
	maxInFlightLogs         = 200
)

var (
	accessLog    *Logger     //nolint:golint,gochecknoglobals
	errorLog     *Logger     //nolint:golint,gochecknoglobals
	isAccessInit atomic.Bool //nolint:golint,gochecknoglobals
	accessLoaded atomic.Bool //nolint:golint,gochecknoglobals
	isErrorInit  atomic.Bool //nolint:golint,gochecknoglobals
	errorLoaded  atomic.Bool //nolint:golint,gochecknoglobals
)

// GetLogger returns the singleton Logger for logType, creating it (and its
// backing file) on first use.
func GetLogger(logType LogType) *Logger {
	const loadDelay = 100 * time.Nanosecond

	switch logType {
	case Access:
		lastInit := isAccessInit.Swap(true)
		if !lastInit {
			accessLog = createLogger(logType)
			accessLoaded.Store(true)
		}
		for !accessLoaded.Load() {
			time.Sleep(loadDelay)
		}
		return accessLog
	case Error:
		lastInit := isErrorInit.Swap(true)
		if !lastInit {
			errorLog = createLogger(logType)
			errorLoaded.Store(true)
		}
		for !errorLoaded.Load() {
			time.Sleep(loadDelay)
		}
		return errorLog
	default:
		panic("logging: unknown log type")
	}
}

func createLogger(logType LogType) *Logger {
	var logFile *os.File
	switch runtime.GOOS {
	case "windows", "darwin":
		logFile = createLocalLog(logType)
	default:
		file := fmt.Sprintf("/var/log/gsmcore/ctrl.%s.log", logType)
		if _, err := os.Stat("/var/log/gsmcore"); os.IsNotExist(err) {
			if err := os.Mkdir("/var/log/gsmcore", 0o755); err != nil { //nolint:gomnd
				logFile = createLocalLog(logType)
				break
			}
			if err := os.Chown("/var/log/gsmcore", os.Getuid(), os.Getgid()); err != nil {
				logFile = createLocalLog(logType)
				break
			}
			logFile, err = os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o665) //nolint:gomnd
			if err != nil {
				logFile = createLocalLog(logType)
			}
		} else {
			f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o665) //nolint:gomnd
			if err != nil {
				logFile = createLocalLog(logType)
			} else {
				logFile = f
			}
		}
	}

	var sysLogger *log.Logger
	switch logType {
	case Access:
		sysLogger = log.New(logFile, "", log.LstdFlags)
	case Error:
		sysLogger = log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)
	}

	logger := &Logger{
		logger:  sysLogger,
		file:    logFile,
		Writer:  sysLogger.Writer(),
		channel: make(chan string, maxInFlightLogs),
	}

	go logger.relay()

	return logger
}

func (l *Logger) relay() {
	for msg := range l.channel {
		if msg != "" {
			l.logger.Print(msg)
		}
	}
}

func createLocalLog(logType LogType) *os.File {
	file := fmt.Sprintf("gsmcore.ctrl.%s.log", logType)
	logFile, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o665) //nolint:gomnd
	if err != nil {
		log.Fatalf("failed to create log file: %s:\n%v", file, err)
	}
	return logFile
}

// Logger is a single append-only log stream fed by a buffered channel so
// that callers on the control-channel hot path never block on file I/O.
type Logger struct {
	logger  *log.Logger
	file    *os.File
	Writer  io.Writer
	channel chan string
}

// Errorf appends a formatted message to the error stream.
func Errorf(format string, args ...interface{}) {
	GetLogger(Error).channel <- fmt.Sprintf("%s: %s", getPrefix(), fmt.Sprintf(format, args...))
}

// Logf appends a formatted message to the access stream.
func Logf(format string, args ...interface{}) {
	GetLogger(Access).channel <- fmt.Sprintf("%s: %s", getPrefix(), fmt.Sprintf(format, args...))
}

func getPrefix() string {
	const skip = 2 // getPrefix, Logf/Errorf, caller
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := strings.TrimPrefix(
		runtime.FuncForPC(pc).Name(), "github.com/gsmcore/gsmcore/",
	)
	return fmt.Sprintf("[%s@%s:%s]", name, filepath.Base(file), strconv.Itoa(line))
}

// Close flushes and closes both log streams. Called during stack shutdown.
func Close() {
	if accessLog != nil {
		close(accessLog.channel)
		_ = accessLog.file.Close()
	}
	if errorLog != nil {
		close(errorLog.channel)
		_ = errorLog.file.Close()
	}
}

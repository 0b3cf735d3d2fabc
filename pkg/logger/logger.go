package logger

import (
	"io"
	"log"
	"os"
)

var (
	InfoLog  *log.Logger
	ErrorLog *log.Logger
	WarnLog  *log.Logger
	logFile  *os.File
)

// InitLogger initializes the loggers with both console and file output,
// mirroring the container contract: everything also goes to stderr for
// external collection.
func InitLogger(filename string) error {
	var err error
	logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	multiWriter := io.MultiWriter(os.Stderr, logFile)

	InfoLog = log.New(multiWriter, "INFO: ", log.Ldate|log.Ltime)
	WarnLog = log.New(multiWriter, "WARN: ", log.Ldate|log.Ltime)
	ErrorLog = log.New(multiWriter, "ERROR: ", log.Ldate|log.Ltime)

	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

// Init sets up console-only loggers. Used when no log file is configured
// and as the fallback when logging happens before InitLogger.
func Init() {
	InfoLog = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime)
	WarnLog = log.New(os.Stderr, "WARN: ", log.Ldate|log.Ltime)
	ErrorLog = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
}

func Infof(format string, v ...interface{}) {
	if InfoLog == nil {
		Init()
	}
	InfoLog.Printf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	if WarnLog == nil {
		Init()
	}
	WarnLog.Printf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	if ErrorLog == nil {
		Init()
	}
	ErrorLog.Printf(format, v...)
}

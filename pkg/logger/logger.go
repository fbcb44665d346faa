package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// 日志级别到 zap 级别的映射
var zapLevels = map[LogLevel]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

const timestampLayout = "2006-01-02 15:04:05.000"

// Logger 包装 zap 的 SugaredLogger，保留 printf 风格的包级 API
type Logger struct {
	mu      sync.RWMutex
	sugar   *zap.SugaredLogger
	level   zap.AtomicLevel
	logFile *os.File
	color   bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// getDefaultLogger 获取默认日志实例
func getDefaultLogger() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{
			level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
			color: true,
		}
		defaultLogger.sugar = defaultLogger.build(nil)
	})
	return defaultLogger
}

// encoderConfig 返回控制台/文件共用的编码配置
func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timestampLayout))
	}
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

// build 构建 zap logger；file 为 nil 时仅输出到控制台
func (l *Logger) build(file *os.File) *zap.SugaredLogger {
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig(l.color)),
		zapcore.Lock(os.Stdout),
		l.level,
	)

	core := console
	if file != nil {
		fileCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(false)),
			zapcore.AddSync(file),
			l.level,
		)
		core = zapcore.NewTee(console, fileCore)
	}

	// 跳过 log() 和包级函数两层调用栈
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
}

// InitConsoleLogger 初始化仅控制台日志记录
func InitConsoleLogger() {
	l := getDefaultLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar = l.build(nil)
}

// InitFileLogger 初始化文件和控制台日志记录
func InitFileLogger(logDir string) error {
	l := getDefaultLogger()
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("lbx_%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.logFile != nil {
		l.logFile.Close()
	}
	l.logFile = file
	l.sugar = l.build(file)
	return nil
}

// log 核心日志方法
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch level {
	case DEBUG:
		l.sugar.Debugf(format, args...)
	case INFO:
		l.sugar.Infof(format, args...)
	case WARN:
		l.sugar.Warnf(format, args...)
	default:
		l.sugar.Errorf(format, args...)
	}
}

// Info 记录信息消息
func Info(format string, args ...interface{}) {
	getDefaultLogger().log(INFO, format, args...)
}

// Error 记录错误消息
func Error(format string, args ...interface{}) {
	getDefaultLogger().log(ERROR, format, args...)
}

// Debug 记录调试消息
func Debug(format string, args ...interface{}) {
	getDefaultLogger().log(DEBUG, format, args...)
}

// Warn 记录警告消息
func Warn(format string, args ...interface{}) {
	getDefaultLogger().log(WARN, format, args...)
}

// SetLevel 设置日志级别
func SetLevel(level LogLevel) {
	zl, ok := zapLevels[level]
	if !ok {
		zl = zapcore.InfoLevel
	}
	getDefaultLogger().level.SetLevel(zl)
}

// SetColorEnabled 设置是否启用颜色
func SetColorEnabled(enabled bool) {
	l := getDefaultLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = enabled
	l.sugar = l.build(l.logFile)
}

// Close 刷新并关闭日志文件
func Close() error {
	l := getDefaultLogger()
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		l.sugar = l.build(nil)
		return err
	}
	return nil
}

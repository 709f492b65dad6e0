package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"cyborg-vpn/internal/platform/config"

	"github.com/google/uuid"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Severity GCP Cloud Logging 嚴重級別
type Severity string

const (
	SeverityDefault   Severity = "DEFAULT"
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityNotice    Severity = "NOTICE"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAlert     Severity = "ALERT"
	SeverityEmergency Severity = "EMERGENCY"
)

// LogEntry GCP Cloud Logging 格式的日誌條目
type LogEntry struct {
	Severity       Severity          `json:"severity"`
	Message        string            `json:"message"`
	Timestamp      string            `json:"timestamp"`       // RFC3339 格式
	TraceID        string            `json:"trace,omitempty"` // projects/[PROJECT_ID]/traces/[TRACE_ID]
	HTTPRequest    *HTTPRequest      `json:"httpRequest,omitempty"`
	SourceLocation *SourceLocation   `json:"sourceLocation,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
	InsertID       string            `json:"insertId,omitempty"` // 用於去重
	// 自定義欄位
	RequestID string                 `json:"requestId,omitempty"`
	Locale    string                 `json:"locale,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HTTPRequest HTTP 請求信息
type HTTPRequest struct {
	RequestMethod string `json:"requestMethod,omitempty"`
	RequestURL    string `json:"requestUrl,omitempty"`
	RequestSize   int64  `json:"requestSize,omitempty"`
	Status        int    `json:"status,omitempty"`
	ResponseSize  int64  `json:"responseSize,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	RemoteIP      string `json:"remoteIp,omitempty"`
	Referer       string `json:"referer,omitempty"`
	Latency       string `json:"latency,omitempty"` // 格式: "1.234s"
	Protocol      string `json:"protocol,omitempty"`
}

// SourceLocation 源代碼位置
type SourceLocation struct {
	File     string `json:"file,omitempty"`
	Line     int64  `json:"line,omitempty"`
	Function string `json:"function,omitempty"`
}

type traceKey struct{}

var (
	mu          sync.Mutex
	logWriter   io.Writer
	stdout      io.Writer = os.Stdout
	projectID   = "local-dev"
	serviceName = "cyborg-vpn"
)

// InitLogger 初始化 GCP 格式日誌系統
func InitLogger() error {
	logDir := os.Getenv("LOG_PATH")
	if logDir == "" {
		logDir = "./logs"
	}

	if v := os.Getenv("GCP_PROJECT_ID"); v != "" {
		projectID = v
	}
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		serviceName = v
	}

	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return err
	}

	// 從配置檔案讀取日誌輪轉設定
	cfg := config.Get()
	rotationTime := 24
	maxAge := 30
	maxSize := 100

	if cfg != nil && cfg.Log.RotationTimeHours > 0 {
		rotationTime = cfg.Log.RotationTimeHours
	}
	if cfg != nil && cfg.Log.MaxAgeDays > 0 {
		maxAge = cfg.Log.MaxAgeDays
	}
	if cfg != nil && cfg.Log.MaxSizeMB > 0 {
		maxSize = cfg.Log.MaxSizeMB
	}

	logFileName := filepath.Join(logDir, "app.log")
	writer, err := rotatelogs.New(
		logFileName+".%Y%m%d",
		rotatelogs.WithLinkName(logFileName),
		rotatelogs.WithRotationTime(time.Duration(rotationTime)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
		rotatelogs.WithRotationSize(int64(maxSize)*1024*1024),
	)
	if err != nil {
		return err
	}

	mu.Lock()
	logWriter = writer
	mu.Unlock()

	return nil
}

// CloseLogger 關閉日誌檔案
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logWriter != nil {
		if closer, ok := logWriter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
			}
		}
		logWriter = nil
	}
}

// SetOutput 替換控制台輸出（測試用），回傳還原函數
func SetOutput(w io.Writer) func() {
	mu.Lock()
	prev := stdout
	stdout = w
	mu.Unlock()

	return func() {
		mu.Lock()
		stdout = prev
		mu.Unlock()
	}
}

// writeLog 寫入日誌（內部方法）
func writeLog(entry *LogEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}
	jsonData = append(jsonData, '\n')

	mu.Lock()
	defer mu.Unlock()

	if logWriter != nil {
		_, _ = logWriter.Write(jsonData)
	}
	_, _ = stdout.Write(jsonData)
}

// getSourceLocation 獲取源代碼位置
func getSourceLocation(skip int) *SourceLocation {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}

	fn := runtime.FuncForPC(pc)
	funcName := "unknown"
	if fn != nil {
		funcName = fn.Name()
	}

	return &SourceLocation{
		File:     filepath.Base(file),
		Line:     int64(line),
		Function: funcName,
	}
}

// GetTraceID 從 context 獲取 trace ID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceKey{}).(string); ok && traceID != "" {
		return fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)
	}
	return ""
}

// NewTraceID 生成新的 trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID 將 trace ID 添加到 context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

func logAt(ctx context.Context, skip int, severity Severity, message string, opts ...LogOption) {
	entry := &LogEntry{
		Severity:       severity,
		Message:        message,
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		TraceID:        GetTraceID(ctx),
		SourceLocation: getSourceLocation(skip),
		InsertID:       uuid.New().String(),
		Labels: map[string]string{
			"service": serviceName,
		},
	}

	for _, opt := range opts {
		opt(entry)
	}

	writeLog(entry)
}

// LogOption 日誌選項
type LogOption func(*LogEntry)

// WithRequestID 添加請求 ID
func WithRequestID(requestID string) LogOption {
	return func(e *LogEntry) {
		e.RequestID = requestID
	}
}

// WithLocale 添加語系
func WithLocale(locale string) LogOption {
	return func(e *LogEntry) {
		e.Locale = locale
	}
}

// WithAction 添加操作
func WithAction(action string) LogOption {
	return func(e *LogEntry) {
		e.Action = action
	}
}

// WithDetails 添加詳細信息
func WithDetails(details map[string]interface{}) LogOption {
	return func(e *LogEntry) {
		e.Details = details
	}
}

// WithHTTPRequest 添加 HTTP 請求信息
func WithHTTPRequest(req *HTTPRequest) LogOption {
	return func(e *LogEntry) {
		e.HTTPRequest = req
	}
}

// WithLabels 添加標籤
func WithLabels(labels map[string]string) LogOption {
	return func(e *LogEntry) {
		if e.Labels == nil {
			e.Labels = make(map[string]string)
		}
		for k, v := range labels {
			e.Labels[k] = v
		}
	}
}

// 便捷方法

// Debug 記錄 DEBUG 級別日誌
func Debug(ctx context.Context, message string, opts ...LogOption) {
	logAt(ctx, 3, SeverityDebug, message, opts...)
}

// Info 記錄 INFO 級別日誌
func Info(ctx context.Context, message string, opts ...LogOption) {
	logAt(ctx, 3, SeverityInfo, message, opts...)
}

// Warning 記錄 WARNING 級別日誌
func Warning(ctx context.Context, message string, opts ...LogOption) {
	logAt(ctx, 3, SeverityWarning, message, opts...)
}

// Error 記錄 ERROR 級別日誌
func Error(ctx context.Context, message string, opts ...LogOption) {
	logAt(ctx, 3, SeverityError, message, opts...)
}

// Errorf 格式化 ERROR 日誌
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logAt(ctx, 3, SeverityError, fmt.Sprintf(format, args...))
}

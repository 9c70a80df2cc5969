package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calledit/calledit/pkg/config"
)

func TestStructuredEncoder(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:            "INFO",
		Format:           "json",
		StructuredFormat: true,
	}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	var buf bytes.Buffer
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		MessageKey:    "message",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(NewStructuredEncoder(encoderConfig), zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger := zap.New(core, zap.AddCaller())

	logger.Info("test message", zap.String("key", "value"))

	var logObj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logObj); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if logObj["message"] != "test message" {
		t.Errorf("message = %v, want %q", logObj["message"], "test message")
	}
	if logObj["key"] != "value" {
		t.Errorf("key = %v, want %q", logObj["key"], "value")
	}
	if _, ok := logObj["timestamp"]; !ok {
		t.Error("Expected 'timestamp' field in log output")
	}
	if _, ok := logObj["file"]; !ok {
		t.Error("Expected 'file' field in log output")
	}
	if _, ok := logObj["caller"]; ok {
		t.Error("caller should be split into file/line/function")
	}
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	if Ctx(context.Background()) != GetLogger() {
		t.Error("Ctx() without a stored logger should return the global logger")
	}

	l := zap.NewNop()
	if got := Ctx(WithLogger(context.Background(), l)); got != l {
		t.Errorf("Ctx() = %p, want %p", got, l)
	}
}

func TestGinMiddlewareRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(GinMiddleware())
			var scoped *zap.Logger
			r.GET("/ping", func(c *gin.Context) {
				scoped = Ctx(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.incoming != "" {
				req.Header.Set(headerRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(headerRequestID)
			if got == "" {
				t.Fatal("X-Request-ID header missing")
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("X-Request-ID = %q, want %q", got, tt.incoming)
			}
			if scoped == nil || scoped == GetLogger() {
				t.Error("handler should see a request scoped logger")
			}
		})
	}
}

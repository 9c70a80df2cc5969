package logging

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// StructuredEncoder writes one flat JSON object per entry: the entry
// metadata and every field share the top level, with caller split into
// file/line/function.
type StructuredEncoder struct {
	zapcore.Encoder
	config zapcore.EncoderConfig
}

// NewStructuredEncoder creates a flat JSON encoder
func NewStructuredEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	// Caller and stack are emitted as explicit fields below.
	inner := config
	inner.CallerKey = zapcore.OmitKey
	inner.StacktraceKey = zapcore.OmitKey
	inner.FunctionKey = zapcore.OmitKey
	return &StructuredEncoder{
		Encoder: zapcore.NewJSONEncoder(inner),
		config:  config,
	}
}

// EncodeEntry encodes a log entry
func (e *StructuredEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	extra := make([]zapcore.Field, 0, len(fields)+4)
	if entry.Caller.Defined {
		extra = append(extra,
			zapcore.Field{Key: "file", Type: zapcore.StringType, String: entry.Caller.File},
			zapcore.Field{Key: "line", Type: zapcore.Int64Type, Integer: int64(entry.Caller.Line)},
			zapcore.Field{Key: "function", Type: zapcore.StringType, String: entry.Caller.Function},
		)
	}
	if entry.Stack != "" {
		extra = append(extra, zapcore.Field{Key: "stack", Type: zapcore.StringType, String: entry.Stack})
	}
	extra = append(extra, fields...)

	entry.Caller = zapcore.EntryCaller{}
	entry.Stack = ""
	return e.Encoder.EncodeEntry(entry, extra)
}

// Clone creates a copy of the encoder
func (e *StructuredEncoder) Clone() zapcore.Encoder {
	return &StructuredEncoder{
		Encoder: e.Encoder.Clone(),
		config:  e.config,
	}
}

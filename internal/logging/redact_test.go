package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/leavelens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type studentObject struct {
	name   string
	roll   string
	status string
}

func (s studentObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("student_name", s.name)
	enc.AddString("roll_number", s.roll)
	enc.AddString("status", s.status)
	return nil
}

func newRedactingLogger(t *testing.T) (*zap.Logger, *bytes.Buffer) {
	t.Helper()
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRedactingEncoder_PerCallFields(t *testing.T) {
	logger, buf := newRedactingLogger(t)

	logger.Info("record extracted",
		zap.String("student_name", "Priya Sharma"),
		zap.String("roll_number", "21CS045"),
		zap.String("api_key", "sk-123"),
		zap.Int("index", 3),
	)

	out := decodeLine(t, buf)
	assert.Equal(t, redactedValue, out["student_name"])
	assert.Equal(t, redactedValue, out["roll_number"])
	assert.Equal(t, redactedValue, out["api_key"])
	assert.Equal(t, float64(3), out["index"])
	assert.NotContains(t, buf.String(), "Priya")
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	logger, buf := newRedactingLogger(t)

	logger.With(zap.String("Raw_Text", "Respected Sir, I am Priya")).Info("ocr complete")

	out := decodeLine(t, buf)
	assert.Equal(t, redactedValue, out["Raw_Text"])
}

func TestRedactingEncoder_Patterns(t *testing.T) {
	logger, buf := newRedactingLogger(t)

	logger.Info("calling embeddings", zap.String("header", "Bearer abc.def"))

	out := decodeLine(t, buf)
	assert.Equal(t, "[REDACTED:pattern]", out["header"])
}

func TestRedactingEncoder_NestedObject(t *testing.T) {
	logger, buf := newRedactingLogger(t)

	logger.Info("anomaly", zap.Object("student", studentObject{name: "Priya", roll: "21CS045", status: "flagged"}))

	out := decodeLine(t, buf)
	student, ok := out["student"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, redactedValue, student["student_name"])
	assert.Equal(t, redactedValue, student["roll_number"])
	assert.Equal(t, "flagged", student["status"])
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: false})
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m", Time: time.Unix(0, 0)}, []zapcore.Field{zap.String("student_name", "Priya")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Priya")
}

func TestRedactingEncoder_InvalidPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestSecretAndRedactedString(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	Secret("embeddings_key", config.Secret("hunter22")).AddTo(enc)
	RedactedString("reason", "family function").AddTo(enc)

	secret, ok := enc.Fields["embeddings_key"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "[REDACTED:8]", secret["embeddings_key"])
	assert.Equal(t, "[REDACTED:15]", enc.Fields["reason"])
}

func TestAssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(t.Context(), "embedding service configured",
		zap.String("base_url", "http://tei:8080"),
		RedactedString("api_key", "hunter22"),
	)
	tl.AssertNoSecrets(t)
}

func TestAssertNoPII(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(t.Context(), "analysis completed", zap.Int("records", 4))
	tl.AssertNoPII(t, "Priya Sharma")
}

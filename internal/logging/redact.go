package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/leavelens/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	redactedValue    = "[REDACTED]"
	maxPatternLength = 200
)

type secretMarshaler struct {
	key string
	val config.Secret
}

func (s *secretMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString(s.key, "[REDACTED:"+strconv.Itoa(len(s.val.Value()))+"]")
	return nil
}

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, &secretMarshaler{key: key, val: val})
}

// RedactedString logs only the length of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder masks configured field names and values matching
// configured patterns.
type RedactingEncoder struct {
	zapcore.Encoder
	fields   map[string]bool
	patterns []*regexp.Regexp
}

// NewRedactingEncoder wraps base with the redaction rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}

	fields := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		fields[strings.ToLower(f)] = true
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLength {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLength, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &RedactingEncoder{Encoder: base, fields: fields, patterns: patterns}, nil
}

func (e *RedactingEncoder) sensitive(key string) bool {
	return e.fields[strings.ToLower(key)]
}

func (e *RedactingEncoder) matchesPattern(val string) bool {
	for _, re := range e.patterns {
		if re.MatchString(val) {
			return true
		}
	}
	return false
}

// EncodeEntry redacts per-call fields. The wrapped encoder adds them to its
// own clone, so the Add* overrides below only see fields attached via With.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.fields == nil && len(e.patterns) == 0 {
		return e.Encoder.EncodeEntry(ent, fields)
	}

	redacted := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		switch {
		case e.sensitive(f.Key):
			redacted[i] = zap.String(f.Key, redactedValue)
		case f.Type == zapcore.StringType && e.matchesPattern(f.String):
			redacted[i] = zap.String(f.Key, "[REDACTED:pattern]")
		case f.Type == zapcore.ObjectMarshalerType:
			redacted[i] = zap.Object(f.Key, &redactingObject{enc: e, obj: f.Interface.(zapcore.ObjectMarshaler)})
		default:
			redacted[i] = f
		}
	}
	return e.Encoder.EncodeEntry(ent, redacted)
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	if e.matchesPattern(val) {
		e.Encoder.AddString(key, "[REDACTED:pattern]")
		return
	}
	e.Encoder.AddString(key, val)
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the whole value when the key is sensitive. Nested
// fields of reflected values are not inspected.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddObject(key, &redactingObject{enc: e, obj: obj})
}

// Clone keeps the redaction rules on the copy.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:  e.Encoder.Clone(),
		fields:   e.fields,
		patterns: e.patterns,
	}
}

// redactingObject applies the encoder's rules to the fields of a nested
// object, so zap.Object("record", r) cannot leak student_name.
type redactingObject struct {
	enc *RedactingEncoder
	obj zapcore.ObjectMarshaler
}

func (o *redactingObject) MarshalLogObject(inner zapcore.ObjectEncoder) error {
	return o.obj.MarshalLogObject(&nestedRedactor{ObjectEncoder: inner, rules: o.enc})
}

type nestedRedactor struct {
	zapcore.ObjectEncoder
	rules *RedactingEncoder
}

func (n *nestedRedactor) AddString(key, val string) {
	if n.rules.sensitive(key) {
		n.ObjectEncoder.AddString(key, redactedValue)
		return
	}
	n.ObjectEncoder.AddString(key, val)
}

func (n *nestedRedactor) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if n.rules.sensitive(key) {
		n.ObjectEncoder.AddString(key, redactedValue)
		return nil
	}
	return n.ObjectEncoder.AddObject(key, &redactingObject{enc: n.rules, obj: obj})
}

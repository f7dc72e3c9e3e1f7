package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fyrsmithlabs/leavelens/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ocrServer(t *testing.T, response string, got *recognizeRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const twoPages = `{"pages":[
	{"lines":[
		{"text":"Respected Sir,","confidence":0.98},
		{"text":"~~smudge~~","confidence":0.31},
		{"text":"I request leave on 12-01-2024","confidence":0.5001},
		{"text":"exactly half","confidence":0.5}
	]},
	{"lines":[
		{"text":"Yours obediently"}
	]}
]}`

func TestClient_Recognize(t *testing.T) {
	var req recognizeRequest
	srv := ocrServer(t, twoPages, &req)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", MinConfidence: DefaultMinConfidence})
	require.NoError(t, err)

	doc := Document{Kind: KindPNG, Data: []byte{1, 2, 3}}
	text, err := c.Recognize(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "Respected Sir,\nI request leave on 12-01-2024\nYours obediently", text)
	assert.Equal(t, "image/png", req.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(doc.Data), req.Document)
}

func TestClient_Recognize_Errors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "engine crashed", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, err := NewClient(ClientConfig{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = c.Recognize(context.Background(), Document{Kind: KindPDF})
		assert.ErrorIs(t, err, ErrRecognitionFailed)
		assert.Contains(t, err.Error(), "engine crashed")
	})

	t.Run("no pages", func(t *testing.T) {
		srv := ocrServer(t, `{"pages":[]}`, nil)
		c, err := NewClient(ClientConfig{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = c.Recognize(context.Background(), Document{Kind: KindPDF})
		assert.ErrorIs(t, err, ErrRecognitionFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		c, err := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = c.Recognize(context.Background(), Document{Kind: KindPNG})
		assert.ErrorIs(t, err, ErrRecognitionFailed)
	})
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "http://ocr", MinConfidence: 1})
	assert.Error(t, err)
}

func TestClient_Recognize_Span(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	srv := ocrServer(t, twoPages, nil)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, MinConfidence: DefaultMinConfidence},
		WithTracerProvider(tt.TracerProvider()))
	require.NoError(t, err)

	_, err = c.Recognize(context.Background(), Document{Kind: KindPDF, Data: []byte("%PDF")})
	require.NoError(t, err)

	tt.AssertSpanAttribute(t, "ocr.Recognize", "ocr.document.kind", "pdf")
	tt.AssertSpanAttribute(t, "ocr.Recognize", "ocr.pages", int64(2))
}

package mt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

func TestParseTranslation_WellFormed(t *testing.T) {
	out, err := parseTranslation(`{"translation": "Hola mundo"}`, "hello world")
	assert.NoError(t, err)
	assert.Equal(t, "Hola mundo", out)
}

func TestParseTranslation_MalformedFallsBackToSource(t *testing.T) {
	out, err := parseTranslation("not json at all", "hello world")
	assert.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestParseTranslation_EmptyFieldFallsBackToSource(t *testing.T) {
	out, err := parseTranslation(`{"translation": ""}`, "hello world")
	assert.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestGroqTranslator_Translate(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		resp := struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}{}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{})
		resp.Choices[0].Message.Content = `{"translation": "Hola mundo"}`
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	tr := &GroqTranslator{apiKey: "test-key", url: server.URL, model: "llama-3.1-8b-instant"}

	es, _ := lang.ByCode("es")
	out, err := tr.Translate(context.Background(), "hello world", es)
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Contains(t, gotBody, `"temperature":0.1`)

	tr.SetAPIKey("rotated-key")
	assert.Equal(t, "rotated-key", tr.key())
}

func TestGroqTranslator_Translate_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	tr := &GroqTranslator{apiKey: "test-key", url: server.URL, model: "llama-3.1-8b-instant"}

	_, err := tr.Translate(context.Background(), "hello world", lang.Tag{})
	require.Error(t, err)
}

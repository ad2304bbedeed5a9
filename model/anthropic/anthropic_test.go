package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tourmesh/model"
)

var _ model.Model = (*Model)(nil)

func TestGenerate_SendsStopSequences(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Thought: check\nAction: Weather Forecast\nAction Input: 2024-07-01"}],
			"stop_reason": "stop_sequence",
			"stop_sequence": "\nObservation",
			"usage": {"input_tokens": 12, "output_tokens": 8}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.RequestOptions = []option.RequestOption{option.WithMaxRetries(0)}
	})

	resp, err := m.Generate(context.Background(), model.Request{
		Instructions: "You are a travel agent.",
		Prompt:       "Question: weather?",
		Stop:         []string{"\nObservation", "  "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Thought: check\nAction: Weather Forecast\nAction Input: 2024-07-01", resp.Text)
	assert.Equal(t, "stop_sequence", resp.FinishReason)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
	assert.Equal(t, []any{"\nObservation"}, body["stop_sequences"])
	assert.NotNil(t, body["system"])
}

func TestStopSequences(t *testing.T) {
	assert.Equal(t, []string{"\nObservation"}, stopSequences([]string{"", "\n", "\nObservation"}))
	assert.Empty(t, stopSequences(nil))
	assert.Equal(t, model.Info{Name: "claude-3-5-haiku-latest", Provider: "anthropic"}, NewModel().Info())
}

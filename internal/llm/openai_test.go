package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Cloud Speicher, https://example.com/a \n"}}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-3.5-turbo"})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Prompt{
		System:      "You are an SEO assistant.",
		User:        "Generate keywords",
		MaxTokens:   150,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cloud Speicher, https://example.com/a", out)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Generate keywords", got.Messages[1].Content)
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		is     error
		want   string
	}{
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, is: ErrNoChoices},
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, want: "bad key"},
		{name: "plain status", status: http.StatusBadGateway, body: `<html>oops</html>`, want: "status 502"},
		{name: "garbage", status: http.StatusOK, body: `{`, want: "decode chat response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
			require.NoError(t, err)
			_, err = client.Complete(context.Background(), Prompt{User: "hi"})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.want != "" {
				assert.ErrorContains(t, err, tt.want)
			}
		})
	}
}

func TestNewOpenAIClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIClient(OpenAIConfig{Model: "m"})
	assert.ErrorContains(t, err, "api_url")
	_, err = NewOpenAIClient(OpenAIConfig{BaseURL: "http://x"})
	assert.ErrorContains(t, err, "model")

	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: "http://x", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
}

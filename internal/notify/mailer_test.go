package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMailer_Send(t *testing.T) {
	var got Message
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":0,"msg":"ok"}`))
	}))
	defer server.Close()

	mailer := NewMailer(server.URL+"/send", "secret", "deloton@example.com", zap.NewNop())
	err := mailer.Send(context.Background(), Message{
		To:      []string{"rider@example.com"},
		Subject: "Heart rate warning",
		Text:    "slow down",
		Attachments: []Attachment{
			{Filename: "report.xlsx", ContentType: "application/octet-stream", Content: []byte{1, 2, 3}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "deloton@example.com", got.From)
	assert.Equal(t, []string{"rider@example.com"}, got.To)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, []byte{1, 2, 3}, got.Attachments[0].Content)
}

func TestMailer_RelayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":4001,"msg":"invalid recipient"}`))
	}))
	defer server.Close()

	mailer := NewMailer(server.URL, "", "deloton@example.com", zap.NewNop())
	err := mailer.Send(context.Background(), Message{To: []string{"nobody"}, Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestMailer_NoRecipients(t *testing.T) {
	mailer := NewMailer("http://127.0.0.1:1", "", "deloton@example.com", zap.NewNop())
	err := mailer.Send(context.Background(), Message{Subject: "x"})
	assert.Error(t, err)
}

package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadflow_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	url, key, device string
}

func (c testConfig) GetWhatsAppURL() string      { return c.url }
func (c testConfig) GetWhatsAppKey() string      { return c.key }
func (c testConfig) GetWhatsAppDeviceID() string { return c.device }

func TestNewClientDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewClient(testConfig{}, logger.NewWithWriter("test", io.Discard)))
}

func TestSendMessagePostsNormalizedNumber(t *testing.T) {
	var (
		got     sendRequest
		auth    string
		device  string
		gotPath string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		auth = r.Header.Get("Authorization")
		device = r.Header.Get("X-Device-Id")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL + "/", key: "user:pass", device: "dev-1"}, logger.NewWithWriter("test", io.Discard))
	require.NoError(t, client.SendMessage(context.Background(), "06 1234 5678", "Hi Jane"))

	assert.Equal(t, "/send/message", gotPath)
	assert.Equal(t, "31612345678", got.Phone)
	assert.Equal(t, "Hi Jane", got.Message)
	assert.Equal(t, "Basic dXNlcjpwYXNz", auth)
	assert.Equal(t, "dev-1", device)
}

func TestSendMessageReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL}, logger.NewWithWriter("test", io.Discard))
	err := client.SendMessage(context.Background(), "+31612345678", "Hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "device offline")
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	assert.NoError(t, client.SendMessage(context.Background(), "+31612345678", "Hi"))
}

func TestSendMessageWithoutPhone(t *testing.T) {
	client := NewClient(testConfig{url: "http://127.0.0.1:1"}, logger.NewWithWriter("test", io.Discard))
	assert.ErrorIs(t, client.SendMessage(context.Background(), "  ", "Hi"), ErrNoPhone)
}

func TestBasicAuthAndMask(t *testing.T) {
	assert.Equal(t, "", basicAuth(""))
	assert.Equal(t, "Basic abc", basicAuth("Basic abc"))
	assert.Equal(t, "*******5678", mask("31612345678"))
	assert.Equal(t, "12", mask("12"))
}

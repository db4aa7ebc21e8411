package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasting_bot/internal/bot"
)

type chanSubmitter struct {
	updates chan bot.Update
}

func (s *chanSubmitter) Submit(ctx context.Context, u bot.Update) error {
	s.updates <- u
	return nil
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, sonic.Unmarshal(raw, &f))
	return f
}

func newTestServer(t *testing.T) (*Hub, *chanSubmitter, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	sub := &chanSubmitter{updates: make(chan bot.Update, 4)}
	srv := httptest.NewServer(NewServer(":0", hub, sub, prometheus.NewRegistry()).Handler())
	t.Cleanup(srv.Close)
	return hub, sub, srv
}

func TestChatRoundTrip(t *testing.T) {
	hub, sub, srv := newTestServer(t)
	ctx := context.Background()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=42"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readFrame(t, conn)
	assert.Equal(t, "connected", hello.Action)
	assert.NotEmpty(t, hello.Session)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"Silver Needle","user_id":7}`)))
	select {
	case u := <-sub.updates:
		assert.Equal(t, int64(42), u.UserID)
		assert.Equal(t, "Silver Needle", u.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("update not submitted")
	}

	id, err := hub.Send(ctx, 42, bot.Reply{Text: "Year?", Buttons: []bot.Button{{Label: "Skip", Token: "year:skip"}}})
	require.NoError(t, err)
	sent := readFrame(t, conn)
	assert.Equal(t, "send", sent.Action)
	assert.Equal(t, id, sent.MessageID)
	assert.Equal(t, "year:skip", sent.Buttons[0].Token)

	require.ErrorIs(t, hub.Edit(ctx, 42, id+100, bot.Reply{Text: "x"}), ErrCannotEdit)
	require.NoError(t, hub.Edit(ctx, 42, id, bot.Reply{Text: "Region?"}))
	edited := readFrame(t, conn)
	assert.Equal(t, "edit", edited.Action)
	assert.Equal(t, "Region?", edited.Text)

	require.ErrorIs(t, hub.Edit(ctx, 99, 1, bot.Reply{}), ErrCannotEdit)
	_, err = hub.Send(ctx, 99, bot.Reply{})
	require.Error(t, err)
}

func TestChatRequiresUser(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

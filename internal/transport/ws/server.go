package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tasting_bot/internal/bot"
	"tasting_bot/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Submitter accepts inbound updates, implemented by bot.Dispatcher
type Submitter interface {
	Submit(ctx context.Context, u bot.Update) error
}

// Server exposes the chat websocket, health and metrics endpoints
type Server struct {
	hub    *Hub
	sub    Submitter
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds the gin engine; gatherer may be nil to skip /metrics
func NewServer(addr string, hub *Hub, sub Submitter, gatherer prometheus.Gatherer) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLog())

	s := &Server{hub: hub, sub: sub, engine: engine}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": hub.Connected()})
	})
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	engine.GET("/ws", s.handleChat)

	s.srv = &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	return s
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log := logger.With("http")
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}

// Handler returns the HTTP handler, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// inbound is the frame a client sends; the user id comes from the connection
type inbound struct {
	Text      string `json:"text,omitempty"`
	Callback  string `json:"callback,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	FileID    string `json:"file_id,omitempty"`
}

// handleChat serves one chat connection. The user_id query parameter is trusted as the
// owner identity, so this transport is for development and must sit behind an authenticating proxy.
func (s *Server) handleChat(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("failed to upgrade the websocket")
		return
	}
	defer conn.Close()

	cl := newClient(userID, conn)
	s.hub.register(cl)
	defer s.hub.unregister(cl)
	logger.Info().Int64("user", userID).Str("conn", cl.id).Msg("websocket client connected")

	cl.mu.Lock()
	err = cl.write(Frame{Action: "connected", Session: cl.id})
	cl.mu.Unlock()
	if err != nil {
		return
	}

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Int64("user", userID).Err(err).Msg("websocket client disconnected")
			return
		}

		var in inbound
		if err := sonic.Unmarshal(raw, &in); err != nil {
			logger.Warn().Err(err).Msg("invalid websocket frame")
			continue
		}
		u := bot.Update{
			UserID:    userID,
			ChatID:    userID,
			Text:      in.Text,
			Callback:  in.Callback,
			MessageID: in.MessageID,
			FileID:    in.FileID,
		}
		if err := s.sub.Submit(ctx, u); err != nil {
			logger.Warn().Err(err).Int64("user", userID).Msg("failed to submit update")
			return
		}
	}
}

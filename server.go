package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// Agent → client messages on /ws
type ServerMessage struct {
	Type     string    `json:"type"`
	Event    *RunEvent `json:"event,omitempty"`
	Hostname string    `json:"hostname,omitempty"`
	Variant  string    `json:"variant,omitempty"`
	NextRun  string    `json:"next_run,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// StatusResponse is served on /status.
type StatusResponse struct {
	Hostname string    `json:"hostname"`
	Variant  string    `json:"variant"`
	SendAt   string    `json:"send_at"`
	Receiver string    `json:"receiver"`
	LastRun  *RunEvent `json:"last_run,omitempty"`
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Server exposes run status, a report preview and a manual send trigger.
type Server struct {
	log      logr.Logger
	config   *Config
	variant  HostVariant
	pipeline *Pipeline
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]bool
}

func newServer(log logr.Logger, config *Config, variant HostVariant, pipeline *Pipeline) *Server {
	s := &Server{
		log:         log,
		config:      config,
		variant:     variant,
		pipeline:    pipeline,
		subscribers: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	pipeline.Observe(s.broadcastEvent)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/status", s.authorized(s.handleStatus))
	mux.HandleFunc("/preview", s.authorized(s.handlePreview))
	mux.HandleFunc("/send", s.authorized(s.handleSend))
	mux.HandleFunc("/ws", s.authorized(s.handleWebSocket))
	return mux
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(r, s.config.Status.Token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		Hostname: hostname(),
		Variant:  s.variant.String(),
		SendAt:   formatClock(s.config.SendHour, s.config.SendMinute),
		Receiver: s.config.ReceiverMail,
		LastRun:  s.pipeline.LastEvent(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handlePreview renders a fresh report with the logo inlined as a data URI
// so it displays outside a mail client.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RunTimeout)
	defer cancel()

	doc, err := s.pipeline.Render(ctx)
	if err != nil {
		s.log.Error(err, "preview render")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(inlineImage(doc)))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RunTimeout)
	defer cancel()

	s.log.Info("manual report requested", "remote", r.RemoteAddr)
	code := http.StatusOK
	if err := s.pipeline.Run(ctx); err != nil {
		s.log.Error(err, "manual report failed")
		code = http.StatusBadGateway
	}
	writeJSON(w, code, s.pipeline.LastEvent())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.V(1).Info("ws upgrade", "err", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{conn: conn}
	s.addSubscriber(sub)
	defer s.removeSubscriber(sub)

	st := s.status()
	s.sendMessage(sub, ServerMessage{
		Type:     "hello",
		Hostname: st.Hostname,
		Variant:  st.Variant,
		NextRun:  st.SendAt,
		Event:    st.LastRun,
	})

	// Clients only send pings; reading keeps the close handshake working.
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) sendMessage(sub *subscriber, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := sub.send(data); err != nil {
		s.log.V(1).Info("ws write", "err", err)
	}
}

func (s *Server) addSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub] = true
}

func (s *Server) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, sub)
}

func (s *Server) broadcastEvent(ev RunEvent) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	data, err := json.Marshal(ServerMessage{Type: "run", Event: &ev})
	if err != nil {
		return
	}
	for _, sub := range subs {
		if err := sub.send(data); err != nil {
			s.log.V(1).Info("ws broadcast", "err", err)
		}
	}
}

func inlineImage(doc *ReportDocument) string {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(doc.Image)
	return strings.ReplaceAll(doc.HTML, "cid:"+doc.ContentID, uri)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/liushun89/zooterrain/internal/config"
	"github.com/liushun89/zooterrain/internal/observer"
	"github.com/liushun89/zooterrain/internal/sysinfo"
)

type Server struct {
	obs            *observer.Observer
	hub            *Hub
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(cfg *config.Config, obs *observer.Observer, hub *Hub) *Server {
	s := &Server{
		obs:            obs,
		hub:            hub,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/node", s.handleNode)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)
	c := s.hub.AddClient(conn)

	go func() {
		defer func() {
			s.hub.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleRequest(c, data)
		}
	}()
}

// handleRequest services one inbound client frame. Replies go to the
// requesting client only.
func (s *Server) handleRequest(c *client, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed request")
		return
	}

	switch req.Type {
	case ReqGetData:
		if !strings.HasPrefix(req.Path, "/") {
			c.sendError(fmt.Sprintf("invalid path: %q", req.Path))
			return
		}
		payload := s.obs.FetchNodeData(req.Path)
		if payload == nil {
			c.sendError(fmt.Sprintf("node data unavailable: %s", req.Path))
			return
		}
		c.Receive(*payload)
	default:
		c.sendError(fmt.Sprintf("unknown request type: %q", req.Type))
	}
}

type statusResponse struct {
	Status  string            `json:"status"`
	Clients int               `json:"clients"`
	Process *sysinfo.Snapshot `json:"process,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resp := statusResponse{
		Status:  s.obs.Status(),
		Clients: s.hub.ClientCount(),
	}
	if snap, err := sysinfo.Collect(); err == nil {
		resp.Process = snap
	} else {
		log.Printf("sysinfo collect error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		http.Error(w, "path must be absolute", http.StatusBadRequest)
		return
	}

	payload := s.obs.FetchNodeData(path)
	if payload == nil {
		http.Error(w, "node data unavailable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Zooterrain-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}
	return isLoopbackOrigin(host)
}

// isLoopbackOrigin reports whether host names the local machine, with or
// without a port.
func isLoopbackOrigin(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	switch strings.Trim(host, "[]") {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

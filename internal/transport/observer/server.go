package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelnav.ai/internal/protocol"
)

// Server streams stuck events to loopback websocket observers. It satisfies
// the runtime event sink so it can sit next to the log and the index.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu       sync.RWMutex
	run      protocol.RunInfo
	sessions map[string]*session
}

type session struct {
	out chan []byte

	mu     sync.RWMutex
	agents map[string]bool // nil means every agent
}

func (s *session) wants(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents == nil || s.agents[agentID]
}

func (s *session) setFilter(ids []string) {
	var m map[string]bool
	if len(ids) > 0 {
		m = make(map[string]bool, len(ids))
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				m[id] = true
			}
		}
	}
	s.mu.Lock()
	s.agents = m
	s.mu.Unlock()
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
		sessions: map[string]*session{},
	}
}

// SetRunInfo replaces the header sent to observers on connect.
func (s *Server) SetRunInfo(info protocol.RunInfo) {
	info.Type = protocol.TypeRunInfo
	info.ProtocolVersion = protocol.Version
	s.mu.Lock()
	s.run = info
	s.mu.Unlock()
}

func (s *Server) runInfo() protocol.RunInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Sessions reports the number of connected observers.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Dropped reports events skipped because an observer was too slow.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// WriteStuckEvent fans ev out to every interested observer without blocking.
func (s *Server) WriteStuckEvent(ev protocol.StuckEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if !sess.wants(ev.AgentID) {
			continue
		}
		select {
		case sess.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.runInfo())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		sess := &session{out: make(chan []byte, 1024)}
		sess.setFilter(sub.Agents)

		hello, _ := json.Marshal(s.runInfo())
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		s.mu.Lock()
		s.sessions[sid] = sess
		s.mu.Unlock()
		if s.log != nil {
			s.log.Printf("observer %s connected from %s agents=%v", sid, r.RemoteAddr, sub.Agents)
		}
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sid)
			s.mu.Unlock()
			if s.log != nil {
				s.log.Printf("observer %s disconnected", sid)
			}
		}()

		done := make(chan struct{})
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-done:
					writeErr <- nil
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates to change the agent filter.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := decodeSubscribe(msg); ok {
				sess.setFilter(sub.Agents)
			}
		}

		close(done)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

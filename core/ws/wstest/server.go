// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wstest runs an in-process Eludris instance for tests: the REST
// root and /messages on one side, a pandemonium gateway on /ws/ on the
// other. Messages posted over REST are broadcast to connected gateways.
package wstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/models"
	"github.com/gorilla/websocket"
)

type Options struct {
	// HeartbeatInterval is announced in HELLO, in milliseconds.
	HeartbeatInterval uint64
	// NoHello makes the gateway stay silent after the upgrade.
	NoHello bool
	// Script is written, in order, right after HELLO.
	Script []string
	// CloseCode, when set, closes every session with that code once the
	// script is written.
	CloseCode int
	// Abort drops the TCP connection once the script is written.
	Abort bool
	// NoGateway leaves pandemonium_url out of the instance info.
	NoGateway bool
}

type Server struct {
	*httptest.Server

	opts     Options
	upgrader websocket.Upgrader

	mu          sync.Mutex
	sessions    map[*session]struct{}
	connections int
	received    []string
	messages    []models.Message
}

type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *session) write(frame string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func NewServer(opts Options) *Server {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 60000
	}
	s := &Server{
		opts:     opts,
		sessions: make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", s.handleGateway)
	mux.HandleFunc(constant.MessagesPath, s.handleMessages)
	mux.HandleFunc("/", s.handleInfo)
	s.Server = httptest.NewServer(mux)
	return s
}

// GatewayURL is the ws:// address of the gateway endpoint.
func (s *Server) GatewayURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/"
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	info := models.InstanceInfo{
		InstanceName: "wstest",
		Version:      "0.3.3",
		MessageLimit: 2048,
		OprishURL:    s.URL,
	}
	if !s.opts.NoGateway {
		u := s.GatewayURL()
		info.PandemoniumURL = &u
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"message":"invalid message"}`))
		return
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	payload, _ := json.Marshal(msg)
	s.Broadcast(`{"op":"MESSAGE_CREATE","d":` + string(payload) + `}`)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &session{conn: conn}

	s.mu.Lock()
	s.connections++
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	if !s.opts.NoHello {
		hello := `{"op":"HELLO","d":{"heartbeat_interval":` + strconv.FormatUint(s.opts.HeartbeatInterval, 10) + `}}`
		if err := sess.write(hello); err != nil {
			return
		}
	}
	for _, frame := range s.opts.Script {
		if err := sess.write(frame); err != nil {
			return
		}
	}

	switch {
	case s.opts.Abort:
		time.Sleep(50 * time.Millisecond)
		return
	case s.opts.CloseCode != 0:
		sess.writeMu.Lock()
		msg := websocket.FormatCloseMessage(s.opts.CloseCode, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		sess.writeMu.Unlock()
		// drain until the client answers the close so nothing is reset
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, string(data))
		s.mu.Unlock()
	}
}

// Broadcast writes frame to every live gateway session.
func (s *Server) Broadcast(frame string) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.write(frame)
	}
}

// Close drops every live gateway session and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for sess := range s.sessions {
		_ = sess.conn.Close()
	}
	s.mu.Unlock()
	s.Server.Close()
}

// Connections is the number of gateway upgrades served so far.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Live is the number of gateway sessions still open.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Received returns the frames clients sent to the gateway.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// ReceivedOp returns the received frames whose op matches.
func (s *Server) ReceivedOp(op string) []string {
	var out []string
	for _, frame := range s.Received() {
		var p models.Payload
		if json.Unmarshal([]byte(frame), &p) == nil && p.Op == op {
			out = append(out, frame)
		}
	}
	return out
}

// Messages returns the messages posted over REST.
func (s *Server) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Package ipc is the unix-socket control plane between jarvis-ctl and the
// daemon. One JSON request per connection, one JSON reply back.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/jarvisd.sock"

// Request is one control command. Arg carries the free text for "say".
type Request struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// Reply reports the outcome; Stats is only set for the stats command.
type Reply struct {
	OK    bool              `json:"ok"`
	Msg   string            `json:"msg,omitempty"`
	Stats map[string]uint64 `json:"stats,omitempty"`
}

// Server accepts control requests on a unix socket.
type Server struct {
	ln net.Listener
}

// Serve listens on path and calls handler for every request. The handler
// runs on the connection goroutine; its reply is written back before the
// connection closes.
func Serve(path string, handler func(Request) Reply) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln}, nil
}

func (s *Server) Close() error { return s.ln.Close() }

func handleConn(conn net.Conn, handler func(Request) Reply) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	reply := handler(req)
	_ = json.NewEncoder(conn).Encode(reply)
}

// Send delivers one request to the daemon at path and waits for the reply.
func Send(path string, req Request) (*Reply, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Package websocket accepts commands over WebSocket connections.
package websocket

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rtio/pkg/framework"
)

// Server merges the messages of every connection into one byte stream
// and broadcasts statuses back to the connections as text messages.
type Server struct {
	// Listen is the address Run serves on.
	Listen string
	// Path is the endpoint of the websocket handler.
	Path string

	pr *io.PipeReader
	pw *io.PipeWriter

	lock  sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewServer creates a Server.
func NewServer(listen, path string) *Server {
	if path == "" {
		path = "/"
	}
	pr, pw := io.Pipe()
	return &Server{
		Listen: listen,
		Path:   path,
		pr:     pr,
		pw:     pw,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the websocket handler.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.serve)
}

func (s *Server) serve(conn *websocket.Conn) {
	remote := conn.Request().RemoteAddr
	glog.Infof("websocket %s connected", remote)
	s.lock.Lock()
	s.conns[conn] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.conns, conn)
		s.lock.Unlock()
		glog.Infof("websocket %s disconnected", remote)
	}()

	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			if err != io.EOF {
				glog.Warningf("websocket %s receive error: %v", remote, err)
			}
			return
		}
		if _, err := s.pw.Write(msg); err != nil {
			return
		}
	}
}

// Read implements io.Reader, returning io.EOF after Close.
func (s *Server) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// WriteStatus implements command.StatusWriter.
func (s *Server) WriteStatus(code int) error {
	s.lock.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.lock.Unlock()

	var errs framework.AggregatedError
	msg := strconv.Itoa(code)
	for _, conn := range conns {
		errs.Add(websocket.Message.Send(conn, msg))
	}
	return errs.Aggregate()
}

// Close ends the byte stream and drops every connection.
func (s *Server) Close() error {
	s.pw.Close()
	s.lock.Lock()
	defer s.lock.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	return nil
}

// Run implements Runnable, serving on Listen until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.Path, s.Handler())
	srv := &http.Server{Addr: s.Listen, Handler: mux}
	glog.Infof("websocket listening on %s%s", s.Listen, s.Path)
	err := framework.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.Close()
	}, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

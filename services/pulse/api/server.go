package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress string
	Handler       http.Handler
}

// server hosts the instrumented application handler
type server struct {
	handler    http.Handler
	httpServer *http.Server
	listenAddr string
	wg         sync.WaitGroup
}

// NewServer creates a new web server instance
func NewServer(args ArgsWebServer) (*server, error) {
	if args.Handler == nil {
		return nil, errors.New("nil http handler")
	}

	return &server{
		handler:    args.Handler,
		listenAddr: args.ListenAddress,
	}, nil
}

// Start listens and serves connections
func (s *server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}

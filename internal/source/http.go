package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/pool"
	"github.com/eventloom/eventloom/internal/render"
)

const (
	httpReadTimeout  = 30 * time.Second
	httpWriteTimeout = 30 * time.Second
	httpIdleTimeout  = 120 * time.Second
	maxRequestBody   = 4 << 20
)

// HTTPServer serves one configured listener endpoint. Inbound requests
// are matched against the pool's api_listen subscription set; the first
// match answers the request and usually enqueues a follow-up event.
type HTTPServer struct {
	id      string
	addr    string
	catalog *event.Catalog
	set     *pool.Listeners
	queue   chan<- *event.Event
	log     *slog.Logger

	srv      *http.Server
	listener net.Listener
}

func NewHTTPServer(id, addr string, catalog *event.Catalog, set *pool.Listeners, queue chan<- *event.Event, log *slog.Logger) *HTTPServer {
	return &HTTPServer{
		id:      id,
		addr:    addr,
		catalog: catalog,
		set:     set,
		queue:   queue,
		log:     log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.PathPrefix("/").HandlerFunc(s.handle)

	s.srv = &http.Server{
		Handler:      r,
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
	}

	var err error
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.log.Info("http listener up", "pool", s.id, "addr", s.listener.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http listener %s: %w", s.addr, err)
	}
	return nil
}

// Addr returns the bound address, useful when the config asked for :0.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.set.Match(r.URL.Path, r.Method)
	if !ok {
		http.NotFound(w, r)
		return
	}
	spec := ev.ApiListen

	reqData := payload.Empty()
	if spec.ReadsBody(r.Method) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			s.log.Warn("reading request body failed", "event", ev.Name, "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		if len(body) > 0 {
			reqData, err = payload.FromReader(bytes.NewReader(body), spec.RequestContent.PayloadType())
			if err != nil {
				s.log.Warn("request body not decodable", "event", ev.Name, "error", err)
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
		}
	}

	if !s.respond(w, r, ev, reqData) {
		return
	}

	next, ok := s.catalog.ResolveNext(ev)
	if !ok {
		return
	}
	meta := ev.Metadata.Merge(payload.Metadata{ev.Name: map[string]any{
		"url":            r.URL.Path,
		"segments":       segments(r.URL.Path),
		"remote_address": r.RemoteAddr,
	}})
	// The request content lands first, then the listener's own payload
	// on top of it.
	data := reqData.MergeWith(ev.Payload, payload.MergeYes)
	s.log.Debug("request matched", "event", ev.Name, "url", r.URL.Path, "next", next.Name)
	forward(s.queue, next, data, meta)
}

// respond writes the answer: the subscription's template rendered
// against the request, or its payload serialized per response_content.
// Returns false when rendering failed and the chain should stop.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, ev *event.Event, reqData payload.Data) bool {
	spec := ev.ApiListen
	var body []byte
	if spec.Template != "" {
		out, err := render.Render(spec.Template, map[string]any{
			"request":  reqData.TemplateValue(),
			"url":      r.URL.Path,
			"segments": segments(r.URL.Path),
			"data":     ev.Payload.TemplateValue(),
			"metadata": map[string]any(ev.Metadata),
		})
		if err != nil {
			s.log.Warn("response template failed", "event", ev.Name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return false
		}
		body = []byte(out)
	} else {
		body = ev.Payload.ToBytes()
	}
	if spec.ResponseContent == event.DataJSON {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.log.Debug("writing response failed", "event", ev.Name, "error", err)
	}
	return true
}

// Package server exposes the Lama interpreter over the network: an
// evaluation service speaking Connect and gRPC, and a language server
// for editors.
package server

import (
	"context"
	"net"
	"net/http"
	"runtime"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/lama/journal"
	"github.com/chazu/lama/vm"
	"github.com/chazu/lama/wire"
)

var log = commonlog.GetLogger("lama.server")

// LamaServer hosts the evaluation service. Connect handlers are served
// over HTTP; the same service can also be served over gRPC.
type LamaServer struct {
	engine  *vm.Engine
	workers *WorldWorkers
	eval    *EvalService
	mux     *http.ServeMux
	grpc    *grpc.Server
}

// ServerOption configures a LamaServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	journal *journal.Journal
	workers int
}

// WithJournal records every evaluated world in j.
func WithJournal(j *journal.Journal) ServerOption {
	return func(c *serverConfig) { c.journal = j }
}

// WithWorkers bounds the number of worlds executing at once.
func WithWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.workers = n }
}

// New creates a LamaServer. Worlds always run in multi-world mode
// regardless of opts.Worlds, since compiled programs are shared.
func New(opts vm.Options, options ...ServerOption) *LamaServer {
	cfg := &serverConfig{workers: runtime.GOMAXPROCS(0)}
	for _, o := range options {
		o(cfg)
	}

	opts.Worlds = vm.MultiWorldMode
	engine := vm.NewEngine(opts)
	workers := NewWorldWorkers(cfg.workers)

	s := &LamaServer{
		engine:  engine,
		workers: workers,
		eval:    NewEvalService(engine, workers, cfg.journal),
		mux:     http.NewServeMux(),
	}

	handlerOpts := []connect.HandlerOption{
		connect.WithCodec(wire.CBORCodec{}),
		connect.WithCodec(wire.JSONCodec{}),
		connect.WithInterceptors(logUnaryConnect()),
	}
	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, s.eval.Evaluate, handlerOpts...))
	s.mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, s.eval.CheckSyntax, handlerOpts...))

	s.grpc = NewGRPCServer(s.eval)
	return s
}

// Handler returns the HTTP handler serving the Connect endpoints.
func (s *LamaServer) Handler() http.Handler { return s.mux }

// Eval returns the evaluation service.
func (s *LamaServer) Eval() *EvalService { return s.eval }

// GRPC returns the gRPC server carrying the evaluation service.
func (s *LamaServer) GRPC() *grpc.Server { return s.grpc }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *LamaServer) ListenAndServe(addr string) error {
	log.Noticef("Lama evaluation server listening on %s", addr)
	log.Noticef("  Connect (CBOR/JSON): http://%s%s", addr, EvaluateProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// ListenAndServeGRPC starts the gRPC server on the given address.
func (s *LamaServer) ListenAndServeGRPC(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeGRPC(s.grpc, lis)
}

// Stop shuts down the gRPC server and the world workers.
func (s *LamaServer) Stop() {
	s.grpc.Stop()
	s.workers.Stop()
}

// logUnaryConnect logs each Connect call with its outcome.
func logUnaryConnect() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				log.Infof("connect %s: %s", req.Spec().Procedure, err)
			} else {
				log.Infof("connect %s", req.Spec().Procedure)
			}
			return resp, err
		}
	}
}

// NewClient returns Connect clients for the service at baseURL using the
// CBOR codec.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	return &Client{
		evaluate: connect.NewClient[wire.EvaluateRequest, wire.EvaluateResponse](
			httpClient, baseURL+EvaluateProcedure, connect.WithCodec(wire.CBORCodec{})),
		checkSyntax: connect.NewClient[wire.CheckSyntaxRequest, wire.CheckSyntaxResponse](
			httpClient, baseURL+CheckSyntaxProcedure, connect.WithCodec(wire.CBORCodec{})),
	}
}

// Client calls the evaluation service over Connect.
type Client struct {
	evaluate    *connect.Client[wire.EvaluateRequest, wire.EvaluateResponse]
	checkSyntax *connect.Client[wire.CheckSyntaxRequest, wire.CheckSyntaxResponse]
}

// Evaluate runs a program remotely.
func (c *Client) Evaluate(ctx context.Context, req *wire.EvaluateRequest) (*wire.EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// CheckSyntax parses a program remotely.
func (c *Client) CheckSyntax(ctx context.Context, req *wire.CheckSyntaxRequest) (*wire.CheckSyntaxResponse, error) {
	resp, err := c.checkSyntax.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

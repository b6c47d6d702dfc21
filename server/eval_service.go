package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/lama/compiler"
	"github.com/chazu/lama/journal"
	"github.com/chazu/lama/vm"
	"github.com/chazu/lama/wire"
)

// Procedure paths of the evaluation service.
const (
	EvaluationServiceName = "lama.v1.EvaluationService"
	EvaluateProcedure     = "/" + EvaluationServiceName + "/Evaluate"
	CheckSyntaxProcedure  = "/" + EvaluationServiceName + "/CheckSyntax"
)

// EvalService implements the EvaluationService handlers. Every request
// runs in a fresh world; compiled programs are shared between them.
type EvalService struct {
	engine   *vm.Engine
	programs *ProgramCache
	workers  *WorldWorkers
	journal  *journal.Journal // may be nil
}

// NewEvalService creates an EvalService. The engine must be in
// multi-world mode since cached trees run in concurrent worlds.
func NewEvalService(engine *vm.Engine, workers *WorldWorkers, j *journal.Journal) *EvalService {
	return &EvalService{
		engine:   engine,
		programs: NewProgramCache(engine),
		workers:  workers,
		journal:  j,
	}
}

// Programs returns the service's program cache.
func (s *EvalService) Programs() *ProgramCache { return s.programs }

// Evaluate compiles and runs a Lama program.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[wire.EvaluateRequest],
) (*connect.Response[wire.EvaluateResponse], error) {
	resp, err := s.evaluate(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// CheckSyntax parses a Lama program without running it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[wire.CheckSyntaxRequest],
) (*connect.Response[wire.CheckSyntaxResponse], error) {
	return connect.NewResponse(s.checkSyntax(req.Msg)), nil
}

func (s *EvalService) checkSyntax(req *wire.CheckSyntaxRequest) *wire.CheckSyntaxResponse {
	errs := compiler.Check(req.Source)
	return &wire.CheckSyntaxResponse{
		Valid:       len(errs) == 0,
		Diagnostics: wire.Diagnostics(errs),
	}
}

// evaluate is shared by the Connect and gRPC transports. Errors carry a
// connect code; faults and parse errors are reported in the response.
func (s *EvalService) evaluate(ctx context.Context, req *wire.EvaluateRequest) (*wire.EvaluateResponse, error) {
	if req.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("source is required"))
	}

	prog, hash, err := s.programs.Get(req.Source)
	if err != nil {
		var se *compiler.SyntaxError
		if errors.As(err, &se) {
			return &wire.EvaluateResponse{Diagnostics: wire.Diagnostics(se.Errors)}, nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result, err := s.workers.Do(ctx, func() (any, error) {
		return s.run(prog, hash, req)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			code := connect.CodeCanceled
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				code = connect.CodeDeadlineExceeded
			}
			return nil, connect.NewError(code, ctxErr)
		}
		if errors.Is(err, ErrWorkerStopped) {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		var ce *connect.Error
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	run := result.(*worldRun)
	if s.journal != nil {
		if err := s.journal.Record(ctx, run.entry); err != nil {
			log.Errorf("journal: %s", err)
		}
	}
	return run.resp, nil
}

type worldRun struct {
	resp  *wire.EvaluateResponse
	entry journal.Entry
}

// run executes prog in a new world on the calling goroutine.
func (s *EvalService) run(prog *vm.Program, hash string, req *wire.EvaluateRequest) (*worldRun, error) {
	out := &vm.LineBuffer{}
	w := s.engine.NewWorld(vm.NewLinesInput(req.Input), out)
	defer w.Close()

	started := time.Now()
	v, err := w.Run(prog)
	if err == nil && req.Entry != "" {
		args := make([]vm.Value, len(req.Args))
		for i, a := range req.Args {
			if args[i], err = wire.ToVM(a, w.Registry()); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("argument %d: %w", i, err))
			}
		}
		v, err = w.Call(req.Entry, args...)
	}
	elapsed := time.Since(started)

	resp := &wire.EvaluateResponse{WorldID: w.ID(), Output: out.Lines()}
	if err != nil {
		resp.Fault = wire.FaultFromError(err)
		log.Debugf("world %s faulted: %s", w.ID(), err)
	} else {
		r := wire.FromVM(v)
		resp.Result = &r
	}

	return &worldRun{
		resp: resp,
		entry: journal.Entry{
			WorldID:    resp.WorldID,
			SourceHash: hash,
			Entry:      req.Entry,
			Output:     resp.Output,
			Result:     resp.Result,
			Fault:      resp.Fault,
			Started:    started,
			Duration:   elapsed,
		},
	}, nil
}

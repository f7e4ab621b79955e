package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/concierge/internal/config"
	"github.com/ziadkadry99/concierge/internal/llm"
	"github.com/ziadkadry99/concierge/internal/metrics"
	"github.com/ziadkadry99/concierge/internal/tools"
)

// State is a node of the conversation graph.
type State string

const (
	StateAwaitModel State = "AWAIT_MODEL"
	StateAwaitTools State = "AWAIT_TOOLS"
	StateDone       State = "DONE"
)

const defaultMaxIterations = 25

// IterationLimitText is the reply appended when a run exhausts its model calls.
const IterationLimitText = "I'm sorry, I could not complete your request. Please try rephrasing it or ask me again."

// Checkpointer persists threads between runs. Load returns (nil, nil) for
// unknown, expired or unreadable threads.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (*Thread, error)
	Save(ctx context.Context, thread *Thread) error
}

// Reply is the result of one Chat run.
type Reply struct {
	ThreadID   string
	Text       string
	Trace      []State
	Iterations int
}

// Engine drives a thread through AWAIT_MODEL, AWAIT_TOOLS and DONE for each
// guest message.
type Engine struct {
	invoker       *Invoker
	router        *Router
	executor      *Executor
	store         Checkpointer
	maxIterations int
	logger        *slog.Logger
	locks         *keyedMutex
}

// NewEngine assembles an engine from its stages.
func NewEngine(invoker *Invoker, router *Router, executor *Executor, store Checkpointer, maxIterations int, logger *slog.Logger) *Engine {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		invoker:       invoker,
		router:        router,
		executor:      executor,
		store:         store,
		maxIterations: maxIterations,
		logger:        logger,
		locks:         newKeyedMutex(),
	}
}

// Options wires an engine from configuration.
type Options struct {
	Provider    llm.Provider
	Registry    *tools.Registry
	Prompt      *Prompt
	Store       Checkpointer
	Metrics     metrics.Recorder
	Logger      *slog.Logger
	LLM         config.LLMConfig
	Agent       config.AgentConfig
	ToolTimeout time.Duration
}

// New builds the invoker, router and executor from opts and returns the engine.
func New(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}
	if opts.Store == nil {
		return nil, errors.New("agent: checkpoint store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	invoker := NewInvoker(opts.Provider, opts.Registry, opts.Prompt, opts.LLM, opts.Metrics, logger.With("component", "invoker"))
	router := NewRouter(opts.Registry, logger.With("component", "router"))
	executor := NewExecutor(opts.Registry, opts.ToolTimeout, opts.Agent.MaxToolErrorLen, opts.Metrics, opts.LLM.Model, logger.With("component", "executor"))
	return NewEngine(invoker, router, executor, opts.Store, opts.Agent.MaxIterations, logger), nil
}

// Chat appends message to the thread and runs the graph until the model
// answers directly or the iteration cap is reached. Runs on the same thread
// are serialized.
func (e *Engine) Chat(ctx context.Context, threadID, message string) (*Reply, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errors.New("thread id is required")
	}

	unlock := e.locks.Lock(threadID)
	defer unlock()

	thread, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading thread %s: %v", ErrStoreUnavailable, threadID, err)
	}
	if thread == nil {
		e.logger.Info("starting new thread", "thread_id", threadID)
		thread = NewThread(threadID)
	}

	thread.Append(UserTurn(message))

	reply := &Reply{ThreadID: threadID}
	state := StateAwaitModel
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reply.Trace = append(reply.Trace, state)

		switch state {
		case StateAwaitModel:
			if reply.Iterations >= e.maxIterations {
				e.logger.Warn("iteration limit reached", "thread_id", threadID, "iterations", reply.Iterations)
				thread.Append(AssistantTurn(IterationLimitText))
				state = StateDone
				continue
			}

			turn := e.invoker.Invoke(ctx, thread)
			reply.Iterations++
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			turn, decision := e.router.Route(turn)
			thread.Append(turn)
			e.logger.Debug("routed model turn", "thread_id", threadID, "decision", decision, "tool_requests", len(turn.ToolRequests))
			if decision == InvokeTool {
				state = StateAwaitTools
			} else {
				state = StateDone
			}

		case StateAwaitTools:
			last, _ := thread.Last()
			results := e.executor.Execute(ctx, last.ToolRequests)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			thread.Append(results...)
			thread.Booking = UpdateBooking(thread.Booking, last.ToolRequests, results)

			if err := e.save(ctx, thread); err != nil {
				return nil, err
			}
			state = StateAwaitModel

		case StateDone:
			if err := e.save(ctx, thread); err != nil {
				return nil, err
			}
			reply.Text = thread.LastAssistantText()
			return reply, nil
		}
	}
}

func (e *Engine) save(ctx context.Context, thread *Thread) error {
	if err := e.store.Save(ctx, thread); err != nil {
		e.logger.Error("saving thread failed", "thread_id", thread.ID, "error", err)
		return fmt.Errorf("%w: saving thread %s: %v", ErrStoreUnavailable, thread.ID, err)
	}
	return nil
}

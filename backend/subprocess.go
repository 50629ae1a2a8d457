package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pborman/uuid"
)

// SubprocessConfig configures a pool of long-lived child processes that
// speak line-delimited JSON over stdin/stdout. Grounded on
// agents.py:DockerMistralBackend's one-shot `docker model run`
// subprocess, generalized into a persistent pool per spec.md §9's
// design note that a fresh process per completion is too slow for the
// planner's per-stage calls.
type SubprocessConfig struct {
	Key         string
	Command     []string
	PoolSize    int
	Timeout     time.Duration
	Environment map[string]string
}

type wireRequest struct {
	ID      string         `json:"id"`
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
}

type wireResponse struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// subprocessWorker owns one child process and demultiplexes its
// stdout lines back to the caller awaiting that correlation ID.
// The waiters map keyed by correlation ID, guarded by a mutex, is the
// same request/response matching idiom as the teacher's
// PollDataStreamManager/Producers map keyed by agent ID.
type subprocessWorker struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	mu      sync.Mutex
	waiters map[string]chan wireResponse
}

func startWorker(cfg SubprocessConfig) (*subprocessWorker, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("subprocess backend %s: empty command", cfg.Key)
	}
	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)

	env := os.Environ()
	for k, v := range cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	w := &subprocessWorker{
		cmd:     cmd,
		stdin:   stdin,
		waiters: make(map[string]chan wireResponse),
	}
	go w.readLoop(stdout)
	return w, nil
}

func (w *subprocessWorker) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var resp wireResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		w.mu.Lock()
		ch, ok := w.waiters[resp.ID]
		if ok {
			delete(w.waiters, resp.ID)
		}
		w.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	w.mu.Lock()
	for id, ch := range w.waiters {
		delete(w.waiters, id)
		close(ch)
	}
	w.mu.Unlock()
}

func (w *subprocessWorker) send(ctx context.Context, req wireRequest) (wireResponse, error) {
	respCh := make(chan wireResponse, 1)

	w.mu.Lock()
	w.waiters[req.ID] = respCh
	w.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return wireResponse{}, err
	}
	payload = append(payload, '\n')

	if _, err := w.stdin.Write(payload); err != nil {
		w.mu.Lock()
		delete(w.waiters, req.ID)
		w.mu.Unlock()
		return wireResponse{}, err
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return wireResponse{}, fmt.Errorf("worker process closed stdout before responding")
		}
		return resp, nil
	case <-ctx.Done():
		w.mu.Lock()
		delete(w.waiters, req.ID)
		w.mu.Unlock()
		return wireResponse{}, ctx.Err()
	}
}

func (w *subprocessWorker) close() {
	_ = w.stdin.Close()
	_ = w.cmd.Process.Kill()
	_ = w.cmd.Wait()
}

// SubprocessBackend dispatches completion requests to a fixed-size pool
// of subprocessWorkers in round-robin order.
type SubprocessBackend struct {
	cfg     SubprocessConfig
	workers []*subprocessWorker
	next    chan *subprocessWorker
}

// NewSubprocessBackend starts the configured pool of worker processes.
func NewSubprocessBackend(cfg SubprocessConfig) (*SubprocessBackend, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	b := &SubprocessBackend{
		cfg:  cfg,
		next: make(chan *subprocessWorker, size),
	}
	for i := 0; i < size; i++ {
		w, err := startWorker(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.workers = append(b.workers, w)
		b.next <- w
	}
	return b, nil
}

func (b *SubprocessBackend) Kind() Kind { return KindSubprocess }

func (b *SubprocessBackend) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var w *subprocessWorker
	select {
	case w = <-b.next:
	case <-ctx.Done():
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrTimeout, ctx.Err())
	}
	defer func() { b.next <- w }()

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	wireReq := wireRequest{ID: uuid.New(), Prompt: req.Prompt, Context: req.Context}
	resp, err := w.send(callCtx, wireReq)
	if err != nil {
		if callCtx.Err() != nil {
			return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrTimeout, err)
		}
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrUnavailable, err)
	}
	if resp.Error != "" {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, fmt.Errorf(resp.Error))
	}
	return CompletionResponse{Text: resp.Text}, nil
}

func (b *SubprocessBackend) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := b.Complete(probeCtx, CompletionRequest{Prompt: "ping"})
	return err
}

// Close terminates every worker process in the pool.
func (b *SubprocessBackend) Close() {
	for _, w := range b.workers {
		w.close()
	}
}

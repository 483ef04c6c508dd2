package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Transport is the capability an evaluator session needs from its process:
// a way to send command lines, a stream of output lines, a readiness check,
// and teardown. Implementations exist per transport; nothing above this
// interface branches on platform.
type Transport interface {
	Send(command string) error
	Lines() <-chan string
	WaitReady(ctx context.Context) error
	Dispose() error
}

// ProcessTransport runs the evaluator as a child process and talks to it
// over its standard input/output.
type ProcessTransport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
}

// NewProcessTransport starts the evaluator binary at path.
func NewProcessTransport(path string) (*ProcessTransport, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine %q: %w", path, err)
	}

	t := &ProcessTransport{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 256),
	}
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
	}()
	return t, nil
}

func (t *ProcessTransport) Send(command string) error {
	_, err := io.WriteString(t.stdin, command+"\n")
	return err
}

func (t *ProcessTransport) Lines() <-chan string { return t.lines }

// WaitReady returns once the process is accepting input. The process was
// already started in the constructor, so this only verifies it is alive.
func (t *ProcessTransport) WaitReady(ctx context.Context) error {
	if t.cmd.Process == nil {
		return fmt.Errorf("engine process not started")
	}
	return nil
}

// Dispose closes stdin and waits briefly for the process to exit, killing
// it if it does not.
func (t *ProcessTransport) Dispose() error {
	_ = t.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- t.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		log.Warn().Msg("evaluator did not exit, killing")
		_ = t.cmd.Process.Kill()
		return <-done
	}
}

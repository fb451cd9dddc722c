package pt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// endMarker is echoed by the shell after every command so the transport
// knows where one command's output stops.
const endMarker = "__dram_pa_done__"

// transport is the seam between the session and a live engine shell; tests
// substitute a scripted fake.
type transport interface {
	send(cmd string) (string, error)
	close() error
}

// shellTransport talks to an interactive Tcl shell over stdin/stdout. Every
// send is synchronous and blocking; the whole pipeline blocks with it.
type shellTransport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

func newShellTransport(ctx context.Context, binary string, args []string) (*shellTransport, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &shellTransport{cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}, nil
}

func (t *shellTransport) send(cmd string) (string, error) {
	if _, err := fmt.Fprintf(t.stdin, "%s\nputs %s\n", cmd, endMarker); err != nil {
		return "", fmt.Errorf("engine stdin: %w", err)
	}

	var lines []string
	for {
		line, err := t.out.ReadString('\n')
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == endMarker {
			break
		}
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
		if err != nil {
			return strings.Join(lines, "\n"), fmt.Errorf("engine stdout closed: %w", err)
		}
	}

	out := strings.Join(lines, "\n")
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Error:") {
			return out, fmt.Errorf("engine reported: %s", strings.TrimSpace(l))
		}
	}
	return out, nil
}

func (t *shellTransport) close() error {
	// A clean exit lets the shell flush its own logs before the pipe drops.
	fmt.Fprintln(t.stdin, "exit")
	t.stdin.Close()
	return t.cmd.Wait()
}

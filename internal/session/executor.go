package session

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts shell command execution so supervision logic
// can be tested without a real multiplexer.
type CommandExecutor interface {
	Execute(command string) (string, error)
}

// ShellExecutor runs commands through the local shell.
type ShellExecutor struct{}

func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Execute runs the command via bash -c. Stdout is returned even when the
// command exits non-zero: tools like screen use exit codes as signals, not
// failures, and callers decide what a non-zero exit means.
func (e *ShellExecutor) Execute(command string) (string, error) {
	cmd := exec.Command("bash", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return strings.TrimSpace(stdout.String()), fmt.Errorf("command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// MockExecutor for testing. Handlers are matched by command prefix; when
// none matches, MockOutput and MockError are returned.
type MockExecutor struct {
	MockOutput string
	MockError  error
	Handlers   map[string]func(command string) (string, error)
	Commands   []string
}

func (m *MockExecutor) Execute(command string) (string, error) {
	m.Commands = append(m.Commands, command)
	if m.Handlers != nil {
		for prefix, handler := range m.Handlers {
			if strings.HasPrefix(command, prefix) {
				return handler(command)
			}
		}
	}
	return m.MockOutput, m.MockError
}

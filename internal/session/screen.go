package session

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// Screen drives GNU screen sessions through a CommandExecutor. One
// detached session per instance; console output is captured with screen's
// built-in logging so it survives this process restarting.
type Screen struct {
	executor CommandExecutor

	// SettleDelay is how long to wait after issuing the start command
	// before verifying the session exists. Tests set it to zero.
	SettleDelay time.Duration
}

// Session is one entry from screen -list.
type Session struct {
	Name   string
	PID    int
	Status string // "Attached" or "Detached"
}

func NewScreen(executor CommandExecutor) *Screen {
	return &Screen{
		executor:    executor,
		SettleDelay: 500 * time.Millisecond,
	}
}

// Start creates a detached session running command in workDir, logging
// console output to logFile.
func (s *Screen) Start(sessionName, workDir, command, logFile string) error {
	screenCmd := fmt.Sprintf("screen -dmS %s -L -Logfile %s bash -c \"cd %s && %s\"",
		sessionName,
		bashQuote(logFile),
		escapeForDoubleQuotes(bashQuote(workDir)),
		escapeForDoubleQuotes(command),
	)

	output, err := s.executor.Execute(screenCmd)
	if err != nil {
		return fmt.Errorf("failed to create screen session: %w (output: %s)", err, output)
	}

	if s.SettleDelay > 0 {
		time.Sleep(s.SettleDelay)
	}
	running, err := s.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("failed to verify session creation: %w", err)
	}
	if !running {
		return fmt.Errorf("session %s not found after start", sessionName)
	}

	log.Printf("[Screen] Created session %s logging to %s", sessionName, logFile)
	return nil
}

// IsRunning reports whether a session with exactly this name exists.
// Session names are matched whole, not as substrings, so "mc-a" never
// shadows "mc-a-backup".
func (s *Screen) IsRunning(sessionName string) (bool, error) {
	sessions, err := s.Sessions()
	if err != nil {
		return false, err
	}
	for _, sess := range sessions {
		if sess.Name == sessionName {
			return true, nil
		}
	}
	return false, nil
}

// sessionLinePattern matches screen -list entries:
//
//	12345.mc-survival-a1b2c3d4	(01/16/2026 12:00:00 PM)	(Detached)
var sessionLinePattern = regexp.MustCompile(`^\s*(\d+)\.(\S+)\s+(?:\([^)]*\)\s+)?\((\w+)\)`)

// Sessions lists all live screen sessions.
func (s *Screen) Sessions() ([]Session, error) {
	output, err := s.executor.Execute("screen -list")
	if err != nil {
		// screen -list exits non-zero both when no sessions exist and,
		// on some builds, when they do. Trust the parsed output.
		if strings.Contains(output, "No Sockets found") || output == "" {
			return nil, nil
		}
	}

	var sessions []Session
	for _, line := range strings.Split(output, "\n") {
		m := sessionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pid := 0
		fmt.Sscanf(m[1], "%d", &pid)
		sessions = append(sessions, Session{Name: m[2], PID: pid, Status: m[3]})
	}
	return sessions, nil
}

// SendInput types text into the session followed by a newline, as if an
// operator had entered it at the console.
func (s *Screen) SendInput(sessionName, text string) error {
	running, err := s.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if !running {
		return fmt.Errorf("session %s does not exist: %w", sessionName, ErrNotRunning)
	}

	stuffCmd := fmt.Sprintf("screen -S %s -X stuff '%s\n'", sessionName, escapeSingleQuotes(text))
	output, err := s.executor.Execute(stuffCmd)
	if err != nil {
		return fmt.Errorf("failed to send input to session: %w (output: %s)", err, output)
	}
	return nil
}

// Quit terminates the session immediately, killing whatever runs inside.
// Quitting an already-gone session is not an error.
func (s *Screen) Quit(sessionName string) error {
	running, err := s.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if !running {
		return nil
	}

	quitCmd := fmt.Sprintf("screen -S %s -X quit", sessionName)
	output, err := s.executor.Execute(quitCmd)
	if err != nil {
		return fmt.Errorf("failed to quit session: %w (output: %s)", err, output)
	}

	log.Printf("[Screen] Quit session %s", sessionName)
	return nil
}

func escapeSingleQuotes(command string) string {
	return strings.ReplaceAll(command, "'", "'\\''")
}

func escapeForDoubleQuotes(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

func bashQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

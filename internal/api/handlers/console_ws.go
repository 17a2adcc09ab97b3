package handlers

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/logging"
)

// consoleBacklogBytes is how much trailing log a new client receives
// before live streaming begins.
const consoleBacklogBytes = 16 * 1024

// ConsoleHandler streams an instance's console log over a websocket.
type ConsoleHandler struct {
	serversDir string
	upgrader   websocket.Upgrader
}

func NewConsoleHandler(serversDir string) *ConsoleHandler {
	return &ConsoleHandler{
		serversDir: serversDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleConsoleWebSocket upgrades the connection and follows the
// instance's console log, pushing appended output as it appears. The
// stream survives the instance restarting: the multiplexer reopens the
// same log file.
func (h *ConsoleHandler) HandleConsoleWebSocket(c *gin.Context) {
	inst, err := instance.Lookup(h.serversDir, c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.L().Warn("console websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		// Drain client frames; a read error means the client went away.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.follow(conn, inst, done)
}

// follow tails the log file into the websocket until the client
// disconnects. A missing log file is polled for, not fatal: the instance
// may not have started yet.
func (h *ConsoleHandler) follow(conn *websocket.Conn, inst *instance.Instance, done <-chan struct{}) {
	var offset int64 = -1
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		stat, err := os.Stat(inst.LogPath())
		if err != nil {
			continue
		}

		if offset < 0 {
			offset = stat.Size() - consoleBacklogBytes
			if offset < 0 {
				offset = 0
			}
		}
		if stat.Size() < offset {
			// Log was truncated or replaced; start over.
			offset = 0
		}
		if stat.Size() == offset {
			continue
		}

		chunk, err := readChunk(inst.LogPath(), offset, stat.Size()-offset)
		if err != nil {
			logging.L().Warn("console log read failed", "instance", inst.Name(), "error", err)
			continue
		}
		offset += int64(len(chunk))

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, chunk); err != nil {
			return
		}
	}
}

func readChunk(path string, offset, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

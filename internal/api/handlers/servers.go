package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/provision"
	"github.com/nico19422009/mcauto/internal/session"
)

// ServerHandler exposes instance provisioning and supervision.
type ServerHandler struct {
	serversDir  string
	provisioner *provision.Provisioner
	supervisor  *session.Supervisor
}

func NewServerHandler(serversDir string, provisioner *provision.Provisioner, supervisor *session.Supervisor) *ServerHandler {
	return &ServerHandler{
		serversDir:  serversDir,
		provisioner: provisioner,
		supervisor:  supervisor,
	}
}

type serverView struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Jar     string `json:"jar"`
	Loader  string `json:"loader"`
	Memory  string `json:"memory"`
	State   string `json:"state"`
}

func (h *ServerHandler) view(inst *instance.Instance) serverView {
	state, err := h.supervisor.Status(inst)
	if err != nil {
		state = session.StateStopped
	}
	return serverView{
		Name:    inst.Name(),
		Version: inst.Descriptor.Version,
		Jar:     inst.Descriptor.Jar,
		Loader:  inst.Descriptor.Loader.String(),
		Memory:  inst.Descriptor.Memory,
		State:   string(state),
	}
}

// ListServers returns all provisioned instances with their live state.
func (h *ServerHandler) ListServers(c *gin.Context) {
	instances, err := instance.Detect(h.serversDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]serverView, 0, len(instances))
	for _, inst := range instances {
		views = append(views, h.view(inst))
	}
	c.JSON(http.StatusOK, gin.H{"servers": views})
}

// CreateServer provisions a new instance.
func (h *ServerHandler) CreateServer(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Version string `json:"version"`
		Memory  string `json:"memory"`
		Loader  string `json:"loader"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	loader, err := instance.ParseLoader(req.Loader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := h.provisioner.CreateInstance(c.Request.Context(), provision.Request{
		Name:    req.Name,
		Version: req.Version,
		Memory:  req.Memory,
		Loader:  loader,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, h.view(inst))
}

func (h *ServerHandler) lookup(c *gin.Context) (*instance.Instance, bool) {
	inst, err := instance.Lookup(h.serversDir, c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return inst, true
}

// GetServer returns one instance.
func (h *ServerHandler) GetServer(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(inst))
}

// StartServer launches an instance.
func (h *ServerHandler) StartServer(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.supervisor.Start(inst); err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, session.ErrArtifactMissing):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Server started", "name": inst.Name()})
}

// StopServer gracefully stops an instance. Stopping a stopped instance
// succeeds.
func (h *ServerHandler) StopServer(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.supervisor.Stop(inst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Server stopped", "name": inst.Name()})
}

// RestartServer stops and starts an instance.
func (h *ServerHandler) RestartServer(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.supervisor.Restart(inst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Server restarted", "name": inst.Name()})
}

// GetServerStatus reports the instance's live state.
func (h *ServerHandler) GetServerStatus(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	state, err := h.supervisor.Status(inst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": inst.Name(), "state": string(state)})
}

// ExecuteCommand types a console command into a running instance.
func (h *ServerHandler) ExecuteCommand(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.supervisor.SendCommand(inst, req.Command); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Command sent"})
}

// GetConsole returns the trailing lines of the instance's console log.
func (h *ServerHandler) GetConsole(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	lines := 100
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a positive integer"})
			return
		}
		lines = n
	}

	output, err := h.supervisor.TailOutput(inst, lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": inst.Name(), "lines": output})
}

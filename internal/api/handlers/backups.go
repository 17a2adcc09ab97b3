package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nico19422009/mcauto/internal/backup"
	"github.com/nico19422009/mcauto/internal/instance"
)

// BackupHandler exposes backup and schedule management.
type BackupHandler struct {
	serversDir  string
	coordinator *backup.Coordinator
	store       *backup.Store
}

func NewBackupHandler(serversDir string, coordinator *backup.Coordinator, store *backup.Store) *BackupHandler {
	return &BackupHandler{
		serversDir:  serversDir,
		coordinator: coordinator,
		store:       store,
	}
}

func (h *BackupHandler) lookup(c *gin.Context) (*instance.Instance, bool) {
	inst, err := instance.Lookup(h.serversDir, c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return inst, true
}

// ListBackups returns an instance's backups, newest first.
func (h *BackupHandler) ListBackups(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	records, err := h.coordinator.ListBackups(inst.Name())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*backup.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"backups": records})
}

// CreateBackup runs a backup now.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	var req struct {
		IncludeLog     bool                      `json:"include_log"`
		RetentionCount int                       `json:"retention_count"`
		Destination    *backup.DestinationConfig `json:"destination"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	record, err := h.coordinator.CreateBackup(inst, backup.Options{
		IncludeLog:     req.IncludeLog,
		RetentionCount: req.RetentionCount,
		Destination:    req.Destination,
		CreatedBy:      "api",
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetBackup returns one backup record.
func (h *BackupHandler) GetBackup(c *gin.Context) {
	record, err := h.coordinator.GetBackup(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteBackup removes a backup and its archive.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	if err := h.coordinator.DeleteBackup(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Backup deleted"})
}

// RestoreBackup unpacks a backup into a directory.
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	var req struct {
		Destination string `json:"destination" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.coordinator.RestoreBackup(c.Param("id"), req.Destination); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Backup restored"})
}

// ListSchedules returns an instance's backup schedules.
func (h *BackupHandler) ListSchedules(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	schedules, err := h.store.ListSchedules(inst.Name())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if schedules == nil {
		schedules = []*backup.Schedule{}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// CreateSchedule registers a recurring backup.
func (h *BackupHandler) CreateSchedule(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	var req struct {
		Schedule       string                    `json:"schedule" binding:"required"`
		IncludeLog     bool                      `json:"include_log"`
		RetentionCount int                       `json:"retention_count"`
		Enabled        *bool                     `json:"enabled"`
		Destination    *backup.DestinationConfig `json:"destination"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	now := time.Now()
	nextRun, err := backup.ComputeNextRun(req.Schedule, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	schedule := &backup.Schedule{
		ID:             uuid.New().String(),
		Instance:       inst.Name(),
		Schedule:       req.Schedule,
		Enabled:        enabled,
		IncludeLog:     req.IncludeLog,
		RetentionCount: req.RetentionCount,
		NextRun:        nextRun,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Destination != nil {
		schedule.Destination = *req.Destination
	}

	if err := h.store.SaveSchedule(schedule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// DeleteSchedule removes a schedule.
func (h *BackupHandler) DeleteSchedule(c *gin.Context) {
	if err := h.store.DeleteSchedule(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

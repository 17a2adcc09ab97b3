package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nico19422009/mcauto/internal/mojang"
)

// VersionHandler exposes the upstream version catalog.
type VersionHandler struct {
	client *mojang.Client
}

func NewVersionHandler(client *mojang.Client) *VersionHandler {
	return &VersionHandler{client: client}
}

// ListVersions returns the published versions, optionally filtered by
// type (?type=release).
func (h *VersionHandler) ListVersions(c *gin.Context) {
	manifest, err := h.client.Manifest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	versionType := c.Query("type")
	versions := manifest.Versions
	if versionType != "" {
		filtered := make([]mojang.Version, 0, len(versions))
		for _, v := range versions {
			if v.Type == versionType {
				filtered = append(filtered, v)
			}
		}
		versions = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"latest":   manifest.Latest,
		"versions": versions,
	})
}

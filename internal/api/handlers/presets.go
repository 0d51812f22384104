package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hybrid-sizing/internal/api/models"
	"hybrid-sizing/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PresetHandler serves storage presets from a directory of YAML files.
type PresetHandler struct {
	dir    string
	logger *zap.Logger
}

// NewPresetHandler creates a preset handler. An empty dir falls back to
// STORAGE_PRESET_DIR, then ./examples/storage.
func NewPresetHandler(dir string, logger *zap.Logger) *PresetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = os.Getenv("STORAGE_PRESET_DIR")
	}
	if dir == "" {
		dir = filepath.Join("examples", "storage")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &PresetHandler{dir: dir, logger: logger}
}

// Dir returns the preset directory path.
func (h *PresetHandler) Dir() string { return h.dir }

// ListPresets handles GET /api/v1/storage-presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets := []models.StoragePresetInfo{}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		h.logger.Debug("storage preset directory unavailable", zap.String("dir", h.dir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		path := filepath.Join(h.dir, entry.Name())
		sc, err := config.LoadPresetFile(path)
		if err != nil {
			h.logger.Warn("skipping invalid storage preset", zap.String("file", path), zap.Error(err))
			continue
		}
		presets = append(presets, models.StoragePresetInfo{
			ID:   id,
			Name: id,
			File: path,
			Specs: models.StorageSpecs{
				RoundTripEfficiency: sc.RoundTripEfficiency,
				StoreEfficiency:     sc.StoreEfficiency,
				DispatchEfficiency:  sc.DispatchEfficiency,
				DepthOfDischarge:    sc.DepthOfDischarge,
				MaxHours:            sc.MaxHours,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// Lookup loads a preset by ID. IDs are file stems; path separators are rejected.
func (h *PresetHandler) Lookup(id string) (config.StorageConfig, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return config.StorageConfig{}, fmt.Errorf("invalid preset id %q", id)
	}
	sc, err := config.LoadPresetFile(filepath.Join(h.dir, id+".yaml"))
	if err != nil {
		return config.StorageConfig{}, fmt.Errorf("preset %q: %w", id, err)
	}
	return sc, nil
}

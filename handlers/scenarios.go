package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"scenariochat/executor"
	"scenariochat/models"
)

// ListScenariosHandler lists all registered scenarios.
// @Summary      List scenarios
// @Tags         Scenarios
// @Produce      json
// @Success      200  {object}  map[string][]scenario.Info  "Registered scenarios"
// @Failure      500  {object}  map[string]string
// @Router       /api/scenarios [get]
func (h *Handlers) ListScenariosHandler(c *gin.Context) {
	infos, err := h.scenarios.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list scenarios: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": infos})
}

// GetSchemaHandler returns a scenario's current schema snapshot.
// @Summary      Get scenario schema
// @Tags         Scenarios
// @Produce      json
// @Param        id   path      string  true  "Scenario ID"
// @Success      200  {object}  models.Schema
// @Failure      404  {object}  map[string]string  "Unknown scenario"
// @Router       /api/scenarios/{id}/schema [get]
func (h *Handlers) GetSchemaHandler(c *gin.Context) {
	sc, err := h.scenarios.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario not found: %v", err)})
		return
	}
	c.JSON(http.StatusOK, sc.Schema)
}

// ListFilesHandler lists the generated files in a scenario's working directory.
// @Summary      List generated files
// @Tags         Files
// @Produce      json
// @Param        id   path      string  true  "Scenario ID"
// @Success      200  {object}  map[string][]models.GeneratedFile
// @Failure      404  {object}  map[string]string  "Unknown scenario"
// @Router       /api/scenarios/{id}/files [get]
func (h *Handlers) ListFilesHandler(c *gin.Context) {
	sc, err := h.scenarios.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario not found: %v", err)})
		return
	}

	entries, err := os.ReadDir(sc.FilesDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list files: %v", err)})
		return
	}

	files := make([]models.GeneratedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, models.GeneratedFile{
			Filename: entry.Name(),
			Path:     filepath.Join(sc.FilesDir, entry.Name()),
			Type:     executor.ClassifyFile(entry.Name()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// ServeFileHandler serves one generated file. HTML charts render inline.
// @Summary      Serve a generated file
// @Tags         Files
// @Param        id    path  string  true  "Scenario ID"
// @Param        name  path  string  true  "File name"
// @Success      200   {string}  string  "File content"
// @Failure      404   {object}  map[string]string  "File not found"
// @Router       /api/scenarios/{id}/files/{name} [get]
func (h *Handlers) ServeFileHandler(c *gin.Context) {
	sc, err := h.scenarios.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario not found: %v", err)})
		return
	}

	name := c.Param("name")
	// Generated files live flat in the scenario directory; reject any path
	// that would escape it.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(sc.FilesDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(path)
}

// DeleteFileHandler removes a generated file and prunes emptied query groups.
// @Summary      Delete a generated file
// @Tags         Files
// @Param        id    path  string  true  "Scenario ID"
// @Param        name  path  string  true  "File name"
// @Success      204   "No Content"
// @Failure      404   {object}  map[string]string  "File not found"
// @Router       /api/scenarios/{id}/files/{name} [delete]
func (h *Handlers) DeleteFileHandler(c *gin.Context) {
	sc, err := h.scenarios.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario not found: %v", err)})
		return
	}

	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(sc.FilesDir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to delete file: %v", err)})
		return
	}
	if err := h.store.RemoveFileFromGroups(sc.ID, name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("File deleted but group cleanup failed: %v", err)})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListGroupsHandler lists the query/file groups of a scenario.
// @Summary      List query file groups
// @Tags         Files
// @Produce      json
// @Param        id   path      string  true  "Scenario ID"
// @Success      200  {object}  map[string][]models.QueryFileGroup
// @Failure      404  {object}  map[string]string  "Unknown scenario"
// @Router       /api/scenarios/{id}/groups [get]
func (h *Handlers) ListGroupsHandler(c *gin.Context) {
	sc, err := h.scenarios.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario not found: %v", err)})
		return
	}
	groups, err := h.store.ListQueryFileGroups(sc.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if groups == nil {
		groups = []models.QueryFileGroup{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

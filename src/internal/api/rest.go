package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"status-image/src/internal/gateway"
)

func (s *Server) handleStatus(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, gw.Plugin.Snapshot(c.Request.Context()))
}

func (s *Server) handleStatusHTML(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	html, err := gw.Plugin.HTML(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// handleStatusImage renders a fresh screenshot. With ?publish=true the image
// is stored and its link returned instead.
func (s *Server) handleStatusImage(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	img, err := gw.Plugin.Image(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if c.Query("publish") == "true" {
		url, err := gw.Publish(c.Request.Context(), img)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (s *Server) handleGetFile(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)

	path, err := gw.Storage.ImagePath(strings.TrimPrefix(c.Param("filepath"), "/"))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	if info.IsDir() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.File(path)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"status-image/src/internal/gateway"
)

func (s *Server) handleAdminHealth(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, adminHealthResponse{
		Status:  "ok",
		Message: "Admin API is operational",
		OS:      gw.Plugin.OS(),
		Bots:    len(gw.Bots()),
	})
}

type adminHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	OS      string `json:"os"`
	Bots    int    `json:"bots"`
}

func (s *Server) handleGetConfig(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, gw.ConfigSnapshot())
}

func (s *Server) handleListThemes(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, gin.H{
		"active": gw.Plugin.Theme(),
		"themes": gw.Plugin.Themes(),
	})
}

type setThemeRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleSetTheme(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	var req setThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := gw.SetTheme(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gw.Plugin.Theme())
}

func (s *Server) handleListCommands(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	type command struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	out := []command{}
	for _, cmd := range gw.Commands() {
		out = append(out, command{Name: cmd.Name, Description: cmd.Description})
	}
	c.JSON(http.StatusOK, gin.H{"prefixes": gw.Config.Plugin.Prefixes, "commands": out})
}

func (s *Server) handleChannelInfo(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	info, err := gw.ChannelInfo(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleChannelEnroll(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	if err := gw.ChannelEnroll(c.Request.Context(), c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "enrolling"})
}

type channelSendRequest struct {
	Target string `json:"target" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (s *Server) handleChannelSend(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	var req channelSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := gw.ChannelSend(c.Request.Context(), c.Param("name"), req.Target, req.Text); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// admin.go - privacy-conscious visitor tracking and the admin area
package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hkxuan/folio/internal/logging"
	"github.com/hkxuan/folio/internal/store"
)

const adminCookie = "admin_token"

func generateAdminToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("failed to generate admin token: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}

func (a *App) announceAdmin() {
	a.log.Info("Admin access available at /admin/login.")
	if gin.Mode() == gin.DebugMode {
		a.log.Debug("Admin token (dev only).", "token", a.adminToken)
		if a.cfg.UsingDefaultAdmin() {
			a.log.Warn("Using default admin credentials. Set ADMIN_USERNAME and ADMIN_PASSWORD.")
		}
	}
	a.log.Info("Privacy: visitor tracking enabled with hashed IP addresses.")
}

// Middleware to check admin authentication
func (a *App) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

var untrackedPrefixes = []string{
	"/static/", "/models", "/admin/", "/api/", "/favicon", "/privacy", "/healthz",
}

// visitorTracking records page views with hashed IPs after the handler
// ran, so the render mode it picked is stored with the visit. Static
// files, the API and admin pages are skipped, and so is anyone sending
// Do Not Track.
func (a *App) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range untrackedPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		ip, ua, mode := c.ClientIP(), c.GetHeader("User-Agent"), c.GetString(renderModeKey)
		a.record(requestLog(c), func(ctx context.Context) error {
			return a.store.RecordVisit(ctx, ip, ua, path, mode)
		})
	}
}

// runRetention deletes visits past the retention period now and then once
// per interval until ctx is done.
func (a *App) runRetention(ctx context.Context, interval time.Duration) {
	ctx = logging.WithLogger(ctx, a.log)
	a.cleanupVisitors(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.cleanupVisitors(ctx)
		}
	}
}

func (a *App) cleanupVisitors(ctx context.Context) int64 {
	log := logging.FromContext(ctx)
	n, err := a.store.Cleanup(ctx, a.cfg.VisitorRetention)
	if err != nil {
		log.Error("Error cleaning up old visitor data.", "error", err)
		return 0
	}
	if n > 0 {
		log.Info("Privacy cleanup removed old visitor records.", "count", n, "retention", a.cfg.VisitorRetention)
	}
	return n
}

// Setup all admin routes
func (a *App) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"retention": a.cfg.VisitorRetention,
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AdminPassword)) == 1
		who := a.store.HashIP(c.ClientIP())
		if !userOK || !passOK {
			requestLog(c).Warn("Failed admin login attempt.", "from", who)
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}

		// 24 hours
		c.SetCookie(adminCookie, a.adminToken, 3600*24, "/admin", "", gin.Mode() == gin.ReleaseMode, true)
		requestLog(c).Info("Admin login successful.", "from", who)
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		requestLog(c).Info("Admin logout.", "from", a.store.HashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(a.adminAuth())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			requestLog(c).Error("Error loading admin stats.", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":            stats,
			"compressedModels": a.models.Available(),
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
	})

	adminGroup.GET("/messages", func(c *gin.Context) {
		msgs, err := a.store.Messages(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load messages"})
			return
		}
		c.HTML(http.StatusOK, "admin-messages.html", gin.H{"messages": msgs})
	})

	adminGroup.DELETE("/messages/:id", func(c *gin.Context) {
		id := c.Param("id")
		err := a.store.DeleteMessage(c.Request.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		case err != nil:
			requestLog(c).Error("Error deleting message.", "message", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
			return
		}
		requestLog(c).Info("Message deleted by admin.", "message", id, "from", a.store.HashIP(c.ClientIP()))
		c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		n := a.cleanupVisitors(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup finished", "removed": n})
	})

	adminGroup.POST("/models/reload", func(c *gin.Context) {
		if err := a.models.Reload(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"compressed": a.models.Available()})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		requestLog(c).Info("Admin stats exported.", "from", a.store.HashIP(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hkxuan/folio/internal/logging"
	"github.com/hkxuan/folio/internal/mailer"
	"github.com/hkxuan/folio/internal/scene"
	"github.com/hkxuan/folio/internal/store"
)

// restEpsilon is how close to rest a released camera must be to skip the
// reset animation.
const restEpsilon = 1e-3

func (a *App) avatar(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":   a.renderMode(c),
		"avatar": scene.Avatar(a.models),
	})
}

func (a *App) projectScene(c *gin.Context) {
	p, ok := a.resume.Project(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":  a.renderMode(c),
		"scene": scene.ProjectScene(p, a.models, a.cfg.ResetFrames),
	})
}

type resetRequest struct {
	Position *scene.Vec3 `json:"position" binding:"required"`
	Target   *scene.Vec3 `json:"target" binding:"required"`
}

// resetCamera returns the keyframes that carry a released orbit camera back
// to the project's rest pose. Releasing the camera also counts as an orbit
// interaction.
func (a *App) resetCamera(c *gin.Context) {
	p, ok := a.resume.Project(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from := scene.PoseJSON{Position: *req.Position, Target: *req.Target}.Pose()
	rest := scene.RestPose(p)
	frames := a.cfg.ResetFrames
	if scene.AtRest(from, rest, restEpsilon) {
		frames = 0
	}

	a.record(requestLog(c), func(ctx context.Context) error {
		return a.store.RecordInteraction(ctx, p.ID, store.KindOrbit)
	})
	c.JSON(http.StatusOK, gin.H{
		"project": p.ID,
		"frames":  scene.ResetKeyframes(from, rest, frames),
	})
}

type interactionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (a *App) interaction(c *gin.Context) {
	p, ok := a.resume.Project(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := a.store.RecordInteraction(c.Request.Context(), p.ID, req.Kind)
	if errors.Is(err, store.ErrUnknownKind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		requestLog(c).Error("Error recording interaction.", "project", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record interaction"})
		return
	}
	c.Status(http.StatusNoContent)
}

type contactForm struct {
	FullName string `form:"fullName" binding:"required,max=200"`
	Email    string `form:"email" binding:"required,email,max=320"`
	Message  string `form:"message" binding:"required,max=5000"`
}

// Handle contact form submission with HTMX. Fragments are returned with 200
// so HTMX swaps them in; the message is kept in the inbox even when email
// delivery fails.
func (a *App) contact(c *gin.Context) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": ContactInvalid})
		return
	}
	ctx := c.Request.Context()
	log := requestLog(c)

	msg := &store.Message{Name: form.FullName, Email: form.Email, Body: form.Message}
	saveErr := a.store.SaveMessage(ctx, msg)
	if saveErr != nil {
		log.Error("Error saving contact message.", "error", saveErr)
	}

	sendErr := a.mail.Send(ctx, mailer.Contact{Name: form.FullName, Email: form.Email, Message: form.Message})
	switch {
	case sendErr == nil:
		log.Info("Contact email sent.", "message", msg.ID)
		if saveErr == nil {
			if err := a.store.MarkDelivered(ctx, msg.ID); err != nil {
				log.Warn("Could not mark message delivered.", "message", msg.ID, "error", err)
			}
		}
	case errors.Is(sendErr, mailer.ErrNotConfigured):
		log.Debug("Contact message stored without email.", "message", msg.ID)
	default:
		log.Error("Error sending email.", "error", sendErr)
	}

	if saveErr != nil && sendErr != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": ContactFailure})
		return
	}
	c.HTML(http.StatusOK, "contact-success.html", gin.H{"success": ContactSuccess})
}

// record runs a store write off the request path. log is the request's
// logger, taken before the request ends.
func (a *App) record(log *slog.Logger, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), log), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Error("Background write failed.", "error", err)
		}
	}()
}

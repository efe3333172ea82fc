package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"

	"github.com/hkxuan/folio/internal/config"
	"github.com/hkxuan/folio/internal/content"
	"github.com/hkxuan/folio/internal/logging"
	"github.com/hkxuan/folio/internal/mailer"
	"github.com/hkxuan/folio/internal/modelpack"
	"github.com/hkxuan/folio/internal/scene"
	"github.com/hkxuan/folio/internal/store"
	"github.com/hkxuan/folio/web"
)

// App holds everything the handlers share.
type App struct {
	cfg    *config.Config
	log    *slog.Logger
	resume *content.Resume
	store  *store.Store
	mail   mailer.Sender
	models *modelpack.Resolver

	adminToken string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped.", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	resume, err := loadResume(cfg)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	models, err := modelpack.NewResolver(cfg.CompressedModelsDir, "/models", "/models-compressed")
	if err != nil {
		logger.Warn("Ignoring unreadable model manifest.", "dir", cfg.CompressedModelsDir, "error", err)
	}
	logger.Info("Model manifest loaded.", "compressed", models.Available())

	mail := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.ToEmail, nil)
	if !mail.Configured() {
		logger.Warn("SMTP credentials not set, contact messages will only be stored.")
	}

	app := &App{
		cfg:        cfg,
		log:        logger,
		resume:     resume,
		store:      db,
		mail:       mail,
		models:     models,
		adminToken: generateAdminToken(),
	}
	app.announceAdmin()

	go app.runRetention(ctx, 24*time.Hour)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening.", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadResume(cfg *config.Config) (*content.Resume, error) {
	if cfg.ContentPath == "" {
		return content.Default()
	}
	return content.LoadFile(cfg.ContentPath)
}

// Router builds the gin engine with every route.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(a.log), a.visitorTracking())

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(web.Templates(), "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	r.StaticFS("/static", http.FS(web.Static()))
	r.Static("/models", a.cfg.ModelsDir)
	r.Static("/models-compressed", a.cfg.CompressedModelsDir)

	r.GET("/", a.home)
	r.GET("/healthz", a.health)

	// HTMX contact form endpoint - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": ContactTitle})
	})
	r.POST("/contact", a.contact)

	api := r.Group("/api")
	api.GET("/resume", func(c *gin.Context) { c.JSON(http.StatusOK, a.resume) })
	api.GET("/avatar", a.avatar)
	api.GET("/projects/:id/scene", a.projectScene)
	api.POST("/projects/:id/reset", a.resetCamera)
	api.POST("/projects/:id/interactions", a.interaction)

	a.setupAdminRoutes(r)
	return r
}

// Clients report the viewport through client hints, or through ?vw= on
// the first request before the hints are negotiated.
func (a *App) client(c *gin.Context) scene.Client {
	vw := scene.ParseViewport(c.GetHeader("Sec-CH-Viewport-Width"))
	if vw == 0 {
		vw = scene.ParseViewport(c.GetHeader("Viewport-Width"))
	}
	if vw == 0 {
		vw = scene.ParseViewport(c.Query("vw"))
	}
	webgl, _ := c.Cookie("webgl")
	return scene.Client{
		UserAgent:     c.GetHeader("User-Agent"),
		ViewportWidth: vw,
		NoWebGL:       webgl == "0",
	}
}

func (a *App) renderMode(c *gin.Context) scene.RenderMode {
	mode := scene.Detect(a.client(c), a.cfg.MobileBreakpoint)
	c.Set(renderModeKey, string(mode))
	return mode
}

type projectView struct {
	content.Project
	Layout content.RowLayout
	Scene  scene.Descriptor
}

// Home page route
func (a *App) home(c *gin.Context) {
	c.Header("Accept-CH", "Sec-CH-Viewport-Width, Viewport-Width")
	c.Header("Vary", "Sec-CH-Viewport-Width, Viewport-Width, User-Agent")

	mode := a.renderMode(c)
	projects := make([]projectView, len(a.resume.Projects))
	for i, p := range a.resume.Projects {
		projects[i] = projectView{
			Project: p,
			Layout:  content.Layout(i),
			Scene:   scene.ProjectScene(p, a.models, a.cfg.ResetFrames),
		}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":    SiteTitle,
		"intro":    SiteIntro,
		"text":     pageText,
		"profile":  a.resume.Profile,
		"awards":   a.resume.Awards,
		"skills":   a.resume.Skills,
		"projects": projects,
		"avatar":   scene.Avatar(a.models),
		"webgl":    mode == scene.RenderWebGL,
	})
}

func (a *App) health(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var pageText = map[string]string{
	"skills":       SkillsTitle,
	"skillsIntro":  SkillsIntro,
	"awards":       AwardsTitle,
	"projects":     ProjectTitle,
	"about":        AboutTitle,
	"contact":      ContactTitle,
	"loading":      LoadingText,
	"fallbackFace": scene.AvatarFallback,
}

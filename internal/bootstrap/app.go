package bootstrap

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"printshop-backend/internal/analyzer"
	"printshop-backend/internal/pricing"
	"printshop-backend/internal/printjobs"
	"printshop-backend/internal/services/health"
	"printshop-backend/internal/shared/config"
	"printshop-backend/internal/shared/server"
	"printshop-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	PriceTable       pricing.Table
	Calculator       *pricing.Calculator
	Analyzer         *analyzer.Analyzer
	PrintJobsService *printjobs.Service
	PrintJobsHandler *printjobs.Handler
	Health           *health.Service
	RendererName     string
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	table, err := BuildPriceTable(cfg)
	if err != nil {
		return nil, err
	}
	calc, err := pricing.NewCalculator(table)
	if err != nil {
		return nil, fmt.Errorf("price table: %w", err)
	}

	renderer, rendererName := buildRenderer(cfg)
	a := BuildAnalyzer(cfg, renderer)

	svc := printjobs.NewService(a, calc)
	app := &App{
		Config:           cfg,
		PriceTable:       table,
		Calculator:       calc,
		Analyzer:         a,
		PrintJobsService: svc,
		PrintJobsHandler: printjobs.NewHandler(svc),
		Health:           health.NewService(rendererName, len(table.Entries())),
		RendererName:     rendererName,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		PrintJobs: app.PrintJobsHandler,
		Health:    app.Health,
	})
	return app, nil
}

// BuildPriceTable loads the configured table or falls back to the embedded one.
func BuildPriceTable(cfg config.Config) (pricing.Table, error) {
	if strings.TrimSpace(cfg.PriceTablePath) == "" {
		return pricing.DefaultTable(), nil
	}
	return pricing.LoadTable(cfg.PriceTablePath)
}

// BuildAnalyzer keeps the storefront's fixed upload limits and applies the
// configured preview scale and timeout.
func BuildAnalyzer(cfg config.Config, renderer analyzer.PageRenderer) *analyzer.Analyzer {
	limits := analyzer.DefaultLimits()
	if cfg.PreviewScale > 0 {
		limits.PreviewScale = cfg.PreviewScale
	}
	return analyzer.New(analyzer.Config{
		Limits:   limits,
		Timeout:  cfg.AnalyzeTimeout,
		Renderer: renderer,
	})
}

func buildRenderer(cfg config.Config) (analyzer.PageRenderer, string) {
	if cfg.PreviewRenderer == "none" {
		return analyzer.NoopRenderer{}, "none"
	}
	r, err := analyzer.NewPdftoppmRenderer(cfg.PdftoppmPath)
	if err != nil {
		telemetry.Warn("bootstrap.preview_disabled", map[string]any{"err": err.Error()})
		return analyzer.NoopRenderer{}, "none"
	}
	return r, "pdftoppm"
}

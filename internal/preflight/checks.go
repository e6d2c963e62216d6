package preflight

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"toolbridge/internal/config"
	"toolbridge/internal/tools"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// ModelLister lists the models a backend serves
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Checker performs pre-flight checks before server starts.
// Only a missing catalog is fatal; the model backend may come up after us.
type Checker struct {
	cfg     *config.Config
	catalog *tools.Catalog
	models  ModelLister
	timeout time.Duration
}

// NewChecker creates a new preflight checker
func NewChecker(cfg *config.Config, catalog *tools.Catalog, models ModelLister) *Checker {
	return &Checker{
		cfg:     cfg,
		catalog: catalog,
		models:  models,
		timeout: 5 * time.Second,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{c.checkToolCatalog()}
	results = append(results, c.checkModelBackend(ctx)...)
	results = append(results, c.checkCORS())

	// Print summary
	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

func (c *Checker) checkToolCatalog() CheckResult {
	if c.catalog == nil {
		return CheckResult{
			Name:    "Tool Catalog",
			Status:  "fail",
			Message: "Tool catalog was not loaded",
		}
	}

	if c.catalog.Len() == 0 {
		return CheckResult{
			Name:    "Tool Catalog",
			Status:  "warning",
			Message: "Tool server lists no tools, the model will answer without tools",
		}
	}

	return CheckResult{
		Name:    "Tool Catalog",
		Status:  "pass",
		Message: fmt.Sprintf("%d tools available", c.catalog.Len()),
	}
}

// checkModelBackend verifies the backend answers and serves the configured model
func (c *Checker) checkModelBackend(ctx context.Context) []CheckResult {
	if c.models == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ids, err := c.models.ListModels(ctx)
	if err != nil {
		return []CheckResult{{
			Name:    "Model Backend",
			Status:  "warning",
			Message: fmt.Sprintf("Cannot reach %s, /chat will fail until it is up", c.cfg.LLMBaseURL),
			Error:   err,
		}}
	}

	results := []CheckResult{{
		Name:    "Model Backend",
		Status:  "pass",
		Message: fmt.Sprintf("%s serves %d models", c.cfg.LLMBaseURL, len(ids)),
	}}

	for _, id := range ids {
		if id == c.cfg.LLMModel {
			return append(results, CheckResult{
				Name:    "Model",
				Status:  "pass",
				Message: fmt.Sprintf("Model %s is available", c.cfg.LLMModel),
			})
		}
	}

	// Some backends (LM Studio with JIT loading) do not list unloaded models
	return append(results, CheckResult{
		Name:    "Model",
		Status:  "warning",
		Message: fmt.Sprintf("Model %s is not listed by the backend", c.cfg.LLMModel),
	})
}

func (c *Checker) checkCORS() CheckResult {
	if strings.ToLower(c.cfg.Environment) == "production" && c.cfg.AllowedOrigins == "*" {
		return CheckResult{
			Name:    "CORS",
			Status:  "warning",
			Message: "ALLOWED_ORIGINS is * in production",
		}
	}

	return CheckResult{
		Name:    "CORS",
		Status:  "pass",
		Message: fmt.Sprintf("Allowed origins: %s", c.cfg.AllowedOrigins),
	}
}

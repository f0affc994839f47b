package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"agentegen/internal/config"
	"agentegen/pkg/auth"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is a dependency that can be probed for reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// namedDB is implemented by databases that can report which database they use
type namedDB interface {
	Name() string
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	db  Pinger
	cfg *config.Config
}

// NewChecker creates a new preflight checker
func NewChecker(db Pinger, cfg *config.Config) *Checker {
	return &Checker{db: db, cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(ctx),
		c.checkEnvironmentVariables(),
		c.checkUsersFile(),
		c.checkVectorSearch(),
	}

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

// checkDatabaseConnection verifies MongoDB is reachable
func (c *Checker) checkDatabaseConnection(ctx context.Context) CheckResult {
	if c.db == nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Database not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}

	message := "Database connection successful"
	if named, ok := c.db.(namedDB); ok {
		message = fmt.Sprintf("Connected to database %q", named.Name())
	}
	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: message,
	}
}

// checkEnvironmentVariables verifies the model key and JWT secret. Both are
// required in production; elsewhere their absence is a warning.
func (c *Checker) checkEnvironmentVariables() CheckResult {
	var missing []string
	if c.cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) == 0 {
		return CheckResult{
			Name:    "Environment Variables",
			Status:  "pass",
			Message: "All environment variables configured",
		}
	}

	status := "warning"
	if c.cfg.IsProduction() {
		status = "fail"
	}
	return CheckResult{
		Name:    "Environment Variables",
		Status:  status,
		Message: fmt.Sprintf("Missing environment variables: %v", missing),
	}
}

// checkUsersFile verifies the user table can be loaded and is not empty
func (c *Checker) checkUsersFile() CheckResult {
	users, err := auth.LoadUsers(c.cfg.UsersFile)
	if err != nil {
		return CheckResult{
			Name:    "Users File",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot load %s", c.cfg.UsersFile),
			Error:   err,
		}
	}
	if users.Len() == 0 {
		return CheckResult{
			Name:    "Users File",
			Status:  "fail",
			Message: fmt.Sprintf("%s lists no users", c.cfg.UsersFile),
		}
	}

	return CheckResult{
		Name:    "Users File",
		Status:  "pass",
		Message: fmt.Sprintf("%d users loaded", users.Len()),
	}
}

// checkVectorSearch reports whether technical reviews can retrieve references
func (c *Checker) checkVectorSearch() CheckResult {
	if c.cfg.VectorSearchURL == "" {
		return CheckResult{
			Name:    "Vector Search",
			Status:  "warning",
			Message: "VECTOR_SEARCH_URL not set; technical reviews will run without reference documents",
		}
	}

	return CheckResult{
		Name:    "Vector Search",
		Status:  "pass",
		Message: "Vector search endpoint configured",
	}
}

package optimization

import "time"

// Recommendation is one synthesized cost-saving opportunity.
type Recommendation struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	Category            string    `json:"category"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	EstimatedSavings    float64   `json:"estimated_savings"`
	SavingsPercent      float64   `json:"savings_percent"`
	ConfidenceScore     float64   `json:"confidence_score"`
	Priority            string    `json:"priority"`
	Impact              string    `json:"impact"`
	Effort              string    `json:"effort"`
	ImplementationSteps []string  `json:"implementation_steps,omitempty"`
	AffectedResources   []string  `json:"affected_resources,omitempty"`
	AutoImplementable   bool      `json:"auto_implementable"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// Recommendation types
const (
	TypeRightsizing     = "rightsizing"
	TypeScheduledScaling = "scheduled_scaling"
	TypeModelMigration  = "model_migration"
)

// Categories
const (
	CategoryCompute    = "compute"
	CategoryScheduling = "scheduling"
	CategoryModel      = "model"
)

// Priority levels
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Effort and impact levels share the same scale as priority.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Status; mutated by an external approval workflow.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusImplemented = "implemented"
	StatusRejected    = "rejected"
)

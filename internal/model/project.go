package model

import "time"

type ProjectStatus string

const (
	ProjectConsultation    ProjectStatus = "consultation"
	ProjectContract        ProjectStatus = "contract"
	ProjectGridApplication ProjectStatus = "grid_application"
	ProjectInstallation    ProjectStatus = "installation"
	ProjectCommissioning   ProjectStatus = "commissioning"
	ProjectFeedIn          ProjectStatus = "feed_in"
	ProjectCompleted       ProjectStatus = "completed"
)

type Project struct {
	ID                string        `json:"id"`
	CustomerID        string        `json:"customer_id"`
	ProjectNumber     string        `json:"project_number"`
	Status            ProjectStatus `json:"status"`
	CapacityKWp       *float64      `json:"capacity_kwp"`
	StorageKWh        *float64      `json:"storage_kwh"`
	ModuleCount       *int          `json:"module_count"`
	ModuleModel       *string       `json:"module_model"`
	InverterModel     *string       `json:"inverter_model"`
	Orientation       *string       `json:"orientation"`
	AnnualYieldKWh    *float64      `json:"annual_yield_kwh"`
	InstallationDate  *time.Time    `json:"installation_date"`
	CommissioningDate *time.Time    `json:"commissioning_date"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type MilestoneStatus string

const (
	MilestonePending MilestoneStatus = "pending"
	MilestoneActive  MilestoneStatus = "active"
	MilestoneDone    MilestoneStatus = "done"
)

// Valid reports whether s is one of pending, active or done.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneActive, MilestoneDone:
		return true
	}
	return false
}

type Milestone struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Status      MilestoneStatus `json:"status"`
	PlannedDate *time.Time      `json:"planned_date"`
	DoneDate    *time.Time      `json:"done_date"`
	Note        *string         `json:"note"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MilestoneChange is the result of a status update, with the project's customer attached.
type MilestoneChange struct {
	Milestone      Milestone
	CustomerID     string
	PreviousStatus MilestoneStatus
}

// CustomerPortalView is one row of v_customer_portal.
type CustomerPortalView struct {
	CustomerID         string         `json:"customer_id"`
	UserID             *string        `json:"user_id"`
	CustomerNumber     string         `json:"customer_number"`
	FirstName          string         `json:"first_name"`
	LastName           string         `json:"last_name"`
	Email              string         `json:"email"`
	ReferralCode       string         `json:"referral_code"`
	ProjectID          *string        `json:"project_id"`
	ProjectNumber      *string        `json:"project_number"`
	ProjectStatus      *ProjectStatus `json:"project_status"`
	CapacityKWp        *float64       `json:"capacity_kwp"`
	StorageKWh         *float64       `json:"storage_kwh"`
	ModuleCount        *int           `json:"module_count"`
	ModuleModel        *string        `json:"module_model"`
	InverterModel      *string        `json:"inverter_model"`
	Orientation        *string        `json:"orientation"`
	AnnualYieldKWh     *float64       `json:"annual_yield_kwh"`
	InstallationDate   *time.Time     `json:"installation_date"`
	CommissioningDate  *time.Time     `json:"commissioning_date"`
	TotalKWh           float64        `json:"total_kwh"`
	TotalCO2Kg         float64        `json:"total_co2_kg"`
	TotalRevenueEUR    float64        `json:"total_revenue_eur"`
	ReferralCount      int            `json:"referral_count"`
	ReferralBonusTotal float64        `json:"referral_bonus_total"`
}

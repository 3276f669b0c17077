package model

import "time"

type Document struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Category    string    `json:"category"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	MimeType    *string   `json:"mime_type"`
	FileSize    *int64    `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	// empty when signing failed
	DownloadURL string `json:"download_url,omitempty"`
}

type MonitoringMonthly struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Month         time.Time `json:"month"`
	ProductionKWh float64   `json:"production_kwh"`
	FeedInKWh     float64   `json:"feed_in_kwh"`
	SelfUseKWh    float64   `json:"self_use_kwh"`
	CO2SavedKg    float64   `json:"co2_saved_kg"`
	RevenueEUR    *float64  `json:"revenue_eur"`
	CreatedAt     time.Time `json:"created_at"`
}

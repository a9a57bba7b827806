// Package model provides data models for the ADAS knowledge copilot.
package model

import (
	"time"
)

// ContentType classifies an ingested document.
type ContentType string

// Supported content types.
const (
	ContentTypeOTAUpdate          ContentType = "ota_update"
	ContentTypeHardwareSpec       ContentType = "hardware_spec"
	ContentTypeDiagnosticLog      ContentType = "diagnostic_log"
	ContentTypeRepairNote         ContentType = "repair_note"
	ContentTypeSupplierDoc        ContentType = "supplier_doc"
	ContentTypeSystemArchitecture ContentType = "system_architecture"
)

// Valid reports whether the content type is one of the supported values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeOTAUpdate, ContentTypeHardwareSpec, ContentTypeDiagnosticLog,
		ContentTypeRepairNote, ContentTypeSupplierDoc, ContentTypeSystemArchitecture:
		return true
	}
	return false
}

// VehicleSystem tags a document with the vehicle subsystem it describes.
type VehicleSystem string

// Supported vehicle systems.
const (
	VehicleSystemADAS         VehicleSystem = "ADAS"
	VehicleSystemBraking      VehicleSystem = "braking"
	VehicleSystemSteering     VehicleSystem = "steering"
	VehicleSystemPowertrain   VehicleSystem = "powertrain"
	VehicleSystemInfotainment VehicleSystem = "infotainment"
	VehicleSystemHVAC         VehicleSystem = "hvac"
	VehicleSystemLighting     VehicleSystem = "lighting"
	VehicleSystemBodyControl  VehicleSystem = "body_control"
	VehicleSystemNetwork      VehicleSystem = "network"
)

// Valid reports whether the vehicle system is one of the supported values.
func (s VehicleSystem) Valid() bool {
	switch s {
	case VehicleSystemADAS, VehicleSystemBraking, VehicleSystemSteering,
		VehicleSystemPowertrain, VehicleSystemInfotainment, VehicleSystemHVAC,
		VehicleSystemLighting, VehicleSystemBodyControl, VehicleSystemNetwork:
		return true
	}
	return false
}

// SeverityLevel grades the severity of a diagnostic document.
type SeverityLevel string

// Supported severity levels.
const (
	SeverityCritical SeverityLevel = "critical"
	SeverityHigh     SeverityLevel = "high"
	SeverityMedium   SeverityLevel = "medium"
	SeverityLow      SeverityLevel = "low"
)

// ProcessingStatus tracks the ingestion lifecycle of a document.
type ProcessingStatus string

// Document processing states.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Document represents a unit of ingested knowledge.
type Document struct {
	ID            string           `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Filename      string           `json:"filename" gorm:"type:varchar(255);not null"`
	Title         string           `json:"title" gorm:"type:varchar(255)"`
	ContentType   ContentType      `json:"content_type" gorm:"type:varchar(32);index;not null"`
	FilePath      string           `json:"file_path" gorm:"type:varchar(512);uniqueIndex"`
	FileHash      string           `json:"file_hash" gorm:"type:varchar(64);index"`
	VehicleSystem VehicleSystem    `json:"vehicle_system,omitempty" gorm:"type:varchar(32);index"`
	ComponentName string           `json:"component_name,omitempty" gorm:"type:varchar(255)"`
	Supplier      string           `json:"supplier,omitempty" gorm:"type:varchar(255)"`
	ModelYears    string           `json:"model_years,omitempty" gorm:"type:varchar(255)"`
	VINPatterns   string           `json:"vin_patterns,omitempty" gorm:"type:varchar(512)"`
	SeverityLevel SeverityLevel    `json:"severity_level,omitempty" gorm:"type:varchar(16)"`
	Status        ProcessingStatus `json:"processing_status" gorm:"type:varchar(32);default:'pending'"`
	ChunkCount    int              `json:"chunk_count" gorm:"default:0"`
	CreatedAt     time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Chunk represents a contiguous span of a document's extracted text.
// Chunks are immutable after ingestion except for backfilled embeddings.
type Chunk struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DocumentID   string    `json:"document_id" gorm:"type:varchar(64);uniqueIndex:idx_doc_chunk,priority:1;not null"`
	ChunkIndex   int       `json:"chunk_index" gorm:"not null;uniqueIndex:idx_doc_chunk,priority:2"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	ContentHash  string    `json:"content_hash" gorm:"type:varchar(64)"`
	StartChar    int       `json:"start_char" gorm:"default:0"`
	EndChar      int       `json:"end_char" gorm:"default:0"`
	TokenCount   int       `json:"token_count" gorm:"default:0"`
	Embedding    []float32 `json:"-" gorm:"-"` // persisted as a pgvector column, loaded on demand
	HasDTCCodes  bool      `json:"contains_dtc_codes" gorm:"default:false"`
	HasVersion   bool      `json:"contains_version_info" gorm:"default:false"`
	HasComponent bool      `json:"contains_component_info" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}

// Package models defines the core data structures for administrators and reports.
package models

import "time"

// Admin represents a staff account allowed to manage reports.
type Admin struct {
	// ID is the internal identifier of the administrator.
	ID int64 `json:"id"`
	// Username is the unique login name.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the administrator's password.
	PasswordHash string `json:"-"`
	// CreatedAt is the time the account was created.
	CreatedAt time.Time `json:"createdAt"`
}

// ReportType enumerates the kinds of inspection documents.
type ReportType string

const (
	// InspectionCert is an inspection certificate.
	InspectionCert ReportType = "INSPECTION_CERT"
	// InstallationInspection is an installation inspection report.
	InstallationInspection ReportType = "INSTALLATION_INSPECTION"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case InspectionCert, InstallationInspection:
		return true
	}
	return false
}

// FileType tags the format of the stored report artifact.
type FileType string

const (
	FilePDF  FileType = "PDF"
	FileJPG  FileType = "JPG"
	FilePNG  FileType = "PNG"
	FileDOCX FileType = "DOCX"
	FileDOC  FileType = "DOC"
	FileXLSX FileType = "XLSX"
	FileXLS  FileType = "XLS"
)

// Valid reports whether t is a known file type. Office formats are only
// kept for records created before uploads were restricted.
func (t FileType) Valid() bool {
	switch t {
	case FilePDF, FileJPG, FilePNG, FileDOCX, FileDOC, FileXLSX, FileXLS:
		return true
	}
	return false
}

// Report is a persisted inspection record and the document linked to it.
type Report struct {
	ID             int64      `json:"id"`
	ReportNumber   string     `json:"reportNumber"`
	ReportType     ReportType `json:"reportType"`
	InspectionDate time.Time  `json:"inspectionDate"`
	EquipmentName  string     `json:"equipmentName"`
	ClientCompany  string     `json:"clientCompany"`
	UserCompany    string     `json:"userCompany"`
	FileURL        string     `json:"fileUrl"`
	FileType       FileType   `json:"fileType"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ReportPatch carries optional overrides for a partial update.
// A nil field keeps the stored value.
type ReportPatch struct {
	ReportNumber   *string
	ReportType     *ReportType
	InspectionDate *time.Time
	EquipmentName  *string
	ClientCompany  *string
	UserCompany    *string
	FileURL        *string
	FileType       *FileType
}

// Empty reports whether the patch overrides nothing.
func (p ReportPatch) Empty() bool {
	return p.ReportNumber == nil && p.ReportType == nil && p.InspectionDate == nil &&
		p.EquipmentName == nil && p.ClientCompany == nil && p.UserCompany == nil &&
		p.FileURL == nil && p.FileType == nil
}

// Apply merges the patch over r and returns the result.
func (p ReportPatch) Apply(r Report) Report {
	if p.ReportNumber != nil {
		r.ReportNumber = *p.ReportNumber
	}
	if p.ReportType != nil {
		r.ReportType = *p.ReportType
	}
	if p.InspectionDate != nil {
		r.InspectionDate = *p.InspectionDate
	}
	if p.EquipmentName != nil {
		r.EquipmentName = *p.EquipmentName
	}
	if p.ClientCompany != nil {
		r.ClientCompany = *p.ClientCompany
	}
	if p.UserCompany != nil {
		r.UserCompany = *p.UserCompany
	}
	if p.FileURL != nil {
		r.FileURL = *p.FileURL
	}
	if p.FileType != nil {
		r.FileType = *p.FileType
	}
	return r
}

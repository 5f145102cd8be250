package models

import "time"

// Project represents a writing project in the system
type Project struct {
	ID          string      `json:"id" boltholdKey:"ID" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Upload      *UploadInfo `json:"upload,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// HasUpload reports whether a source text has been stored for the project.
func (p *Project) HasUpload() bool {
	return p.Upload != nil
}

// UploadInfo describes the source text stored for a project
type UploadInfo struct {
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	Chunks       int       `json:"chunks"`
	RelativePath string    `json:"relative_path"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Artifact describes a generated file inside a project workspace
type Artifact struct {
	Name         string    `json:"name"`
	RelativePath string    `json:"relative_path"`
	Size         int64     `json:"size"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// ProjectDetail bundles a project with the artifacts found in its workspace
type ProjectDetail struct {
	Project
	Artifacts []Artifact `json:"artifacts"`
}

// ProjectUpdate carries the optional fields of a project update request.
// Nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

package types

import "time"

// Course represents a course offered on the platform.
type Course struct {
	// ID is the unique identifier of the course.
	ID int `json:"id" db:"id"`

	// Name is the human-readable title of the course.
	Name string `json:"name" db:"name"`

	// Description contains the full course description shown to students.
	Description string `json:"description" db:"description"`

	// Level indicates the target audience (e.g., "beginner", "advanced").
	Level string `json:"level" db:"level"`

	// Price is the display price of the course. Kept as a string so the
	// platform can carry currency formatting decided upstream.
	Price string `json:"price" db:"price"`

	// Materials lists the files attached to the course. Materials are
	// stored in object storage and referenced here by object key.
	Materials []Material `json:"materials" db:"materials"`

	// CreatedAt is the timestamp at which the course was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the course.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Material describes a single file attached to a course.
//
// The file lives in object storage (e.g., MinIO or GCS) under ObjectKey.
// The SHA256 hash uniquely identifies the file contents and doubles as
// the download handle in the API.
type Material struct {
	// Name is the original filename of the upload.
	Name string `json:"name" db:"name"`

	// ObjectKey is the identifier or path of the file in object storage.
	ObjectKey string `json:"object_key" db:"object_key"`

	// ContentType is the MIME type reported at upload time.
	ContentType string `json:"content_type" db:"content_type"`

	// Size is the file size in bytes.
	Size int64 `json:"size" db:"size"`

	// SHA256 is the cryptographic SHA-256 hash of the file contents,
	// encoded as a hexadecimal string.
	SHA256 string `json:"sha256" db:"sha256"`
}

package backup

import (
	"fmt"
	"io"
)

// Destination is remote or local storage for finished archives.
type Destination interface {
	// Upload stores a file read from reader under filename.
	Upload(filename string, reader io.Reader, sizeBytes int64) error

	// Download copies a stored file into writer.
	Download(filename string, writer io.Writer) error

	// Delete removes a stored file.
	Delete(filename string) error

	// List returns all archives at the destination.
	List() ([]StoredFile, error)

	// Type returns the destination type identifier.
	Type() string
}

// StoredFile is one archive at a destination.
type StoredFile struct {
	Filename  string
	SizeBytes int64
	CreatedAt int64 // Unix timestamp
}

// DestinationConfig selects and configures a destination.
type DestinationConfig struct {
	Type string `yaml:"type" json:"type"` // "local", "sftp", "s3"
	Path string `yaml:"path" json:"path"` // Base path for archives

	// SFTP specific
	SFTPHost       string `yaml:"sftp_host" json:"sftp_host,omitempty"`
	SFTPPort       int    `yaml:"sftp_port" json:"sftp_port,omitempty"`
	SFTPUsername   string `yaml:"sftp_username" json:"sftp_username,omitempty"`
	SFTPPassword   string `yaml:"sftp_password" json:"-"`
	SFTPKeyPath    string `yaml:"sftp_key_path" json:"sftp_key_path,omitempty"`
	KnownHostsPath string `yaml:"known_hosts_path" json:"known_hosts_path,omitempty"`

	// S3 specific
	S3Bucket    string `yaml:"s3_bucket" json:"s3_bucket,omitempty"`
	S3Region    string `yaml:"s3_region" json:"s3_region,omitempty"`
	S3AccessKey string `yaml:"s3_access_key" json:"-"`
	S3SecretKey string `yaml:"s3_secret_key" json:"-"`
	S3Endpoint  string `yaml:"s3_endpoint" json:"s3_endpoint,omitempty"` // for S3-compatible storage
}

// NewDestination creates a destination from config.
func NewDestination(config *DestinationConfig) (Destination, error) {
	switch config.Type {
	case "local", "":
		return NewLocalDestination(config.Path), nil
	case "sftp":
		return NewSFTPDestination(config)
	case "s3":
		return NewS3Destination(config)
	default:
		return nil, fmt.Errorf("unsupported destination type: %s", config.Type)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Credential file locations tried after MIGRATE_CREDENTIALS_FILE.
const (
	LocalCredentialsFile = "service-account.json"
	UserCredentialsFile  = "~/.config/ocms-migrate/service-account.json"
)

// Supported document store drivers.
const (
	DriverSQLite  = "sqlite"
	DriverMySQL   = "mysql"
	DriverMongoDB = "mongodb"
)

// ErrNoCredentials is returned when no credential file exists in any of
// the searched locations.
var ErrNoCredentials = errors.New("no service credentials found")

// CredentialError reports that the target services cannot be initialized.
// It is recoverable: the migration falls back to a dry run.
type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("credentials: %v", e.Err)
	}
	return fmt.Sprintf("credentials %s: %v", e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Credentials identify the document store and blob bucket a migration
// writes to.
type Credentials struct {
	ProjectID   string           `json:"project_id"`
	ClientEmail string           `json:"client_email"`
	Store       StoreCredentials `json:"store"`
	Blob        BlobCredentials  `json:"blob"`
}

// StoreCredentials select a document store backend.
type StoreCredentials struct {
	Driver   string `json:"driver"` // sqlite, mysql or mongodb
	DSN      string `json:"dsn"`
	Database string `json:"database"` // mongodb only
}

// BlobCredentials configure the S3-compatible media bucket.
type BlobCredentials struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PublicBaseURL   string `json:"public_base_url"`
	UsePathStyle    bool   `json:"use_path_style"`
}

// HasBlob returns true if a media bucket is configured.
func (c *Credentials) HasBlob() bool {
	return c.Blob.Bucket != ""
}

// LocateCredentials returns the first credential file that exists: the
// explicit path, then ./service-account.json, then the per-user file.
// An explicit path that does not exist is an error rather than a reason
// to keep searching.
func LocateCredentials(explicit string) (string, error) {
	if explicit != "" {
		path, err := homedir.Expand(explicit)
		if err != nil {
			return "", &CredentialError{Path: explicit, Err: err}
		}
		if _, err := os.Stat(path); err != nil {
			return "", &CredentialError{Path: path, Err: err}
		}
		return path, nil
	}

	candidates := []string{LocalCredentialsFile}
	if userFile, err := homedir.Expand(UserCredentialsFile); err == nil {
		candidates = append(candidates, userFile)
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &CredentialError{Err: ErrNoCredentials}
}

// LoadCredentials locates and parses the credential file.
func LoadCredentials(explicit string) (*Credentials, string, error) {
	path, err := LocateCredentials(explicit)
	if err != nil {
		return nil, "", err
	}
	creds, err := ReadCredentials(path)
	if err != nil {
		return nil, path, err
	}
	return creds, path, nil
}

// ReadCredentials parses and validates one credential file.
func ReadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &CredentialError{Path: path, Err: err}
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &CredentialError{Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	switch creds.Store.Driver {
	case DriverSQLite, DriverMySQL:
	case DriverMongoDB:
		if creds.Store.Database == "" {
			return nil, &CredentialError{Path: path, Err: errors.New("store.database is required for mongodb")}
		}
	case "":
		return nil, &CredentialError{Path: path, Err: errors.New("store.driver is required")}
	default:
		return nil, &CredentialError{Path: path, Err: fmt.Errorf("unsupported store driver %q", creds.Store.Driver)}
	}
	if creds.Store.DSN == "" {
		return nil, &CredentialError{Path: path, Err: errors.New("store.dsn is required")}
	}
	return &creds, nil
}

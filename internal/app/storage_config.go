package app

import (
	"strings"

	"github.com/charlesng35/catalog/internal/storage"
)

// BackendName returns the normalised blob backend, defaulting to local.
func (c StorageConfig) BackendName() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return "local"
	}
	return backend
}

// LocalStoreConfig converts the local filesystem options.
func (c StorageConfig) LocalStoreConfig() storage.LocalConfig {
	return storage.LocalConfig{
		Root:    strings.TrimSpace(c.Local.Root),
		BaseURL: strings.TrimSpace(c.Local.BaseURL),
	}
}

// S3StoreConfig converts the S3 options.
func (c StorageConfig) S3StoreConfig() storage.S3Config {
	return storage.S3Config{
		Endpoint:  strings.TrimSpace(c.S3.Endpoint),
		Region:    strings.TrimSpace(c.S3.Region),
		Bucket:    strings.TrimSpace(c.S3.Bucket),
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		UseSSL:    c.S3.UseSSL,
		PublicURL: strings.TrimSpace(c.S3.PublicURL),
	}
}

package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrEmptyImage            = errors.New("image is empty")
	ErrUnsupportedMimeType   = errors.New("unsupported image type")
	ErrImageTooLarge         = errors.New("image exceeds maximum allowed size")
	ErrUnknownFormType       = errors.New("unknown form type")
	ErrUnknownExportFormat   = errors.New("unknown export format")
	ErrNoRecordIDs           = errors.New("no record ids given")
	ErrStorageNotConfigured  = errors.New("record storage is not configured")
	ErrLegacyMigrationFailed = errors.New("legacy record migration failed")
)

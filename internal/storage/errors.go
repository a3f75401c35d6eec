package storage

import "fmt"

// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.
const (
	codeInvalid = "invalid"
)

// StorageError represents a storage-specific error with a code and message.
// It follows the domain.Error pattern for consistent HTTP status mapping.
type StorageError struct {
	Code    string
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *StorageError) ErrorCode() string {
	return e.Code
}

func newStorageError(code, message string) *StorageError {
	return &StorageError{Code: code, Message: message}
}

var (
	// ErrS3CredentialsRequired is returned when S3 credentials are missing.
	ErrS3CredentialsRequired = newStorageError(codeInvalid, "S3 credentials are required")

	// ErrS3BucketRequired is returned when the S3 bucket name is missing.
	ErrS3BucketRequired = newStorageError(codeInvalid, "S3 bucket name is required")
)

// ErrUnknownProvider creates an error for unknown storage providers.
func ErrUnknownProvider(provider string) error {
	return &StorageError{
		Code:    codeInvalid,
		Message: fmt.Sprintf("unknown storage provider: %s", provider),
	}
}

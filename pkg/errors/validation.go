package errors

import (
	"strings"
	"unicode"
)

// ValidateAtlasName validates the base name used for the atlas image and
// metadata files. It must be a plain file stem: no separators, no extension
// tricks, no traversal.
//
// Validation rules:
//   - No empty names
//   - Maximum length of 128 characters
//   - No control characters
//   - No path separators or ".." sequences
//   - Not a hidden file (leading ".")
func ValidateAtlasName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "atlas name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidName, "atlas name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "atlas name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "atlas name cannot contain path separators")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "atlas name cannot contain %q", "..")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidName, "atlas name cannot be a hidden file")
	}

	return nil
}

// ValidateSpriteName validates a derived sprite name before it is used as a
// metadata key.
func ValidateSpriteName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "sprite name cannot be empty")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "sprite name %q contains invalid characters", name)
		}
	}

	return nil
}

// ValidatePath validates a directory path supplied on the command line or in
// a config file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateS3URL validates a publish target of the form s3://bucket[/prefix].
func ValidateS3URL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "publish URL cannot be empty")
	}

	rest, ok := strings.CutPrefix(rawURL, "s3://")
	if !ok {
		return New(ErrCodeInvalidInput, "publish URL must use the s3 scheme")
	}

	bucket, _, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return New(ErrCodeInvalidInput, "publish URL must name a bucket")
	}

	return nil
}

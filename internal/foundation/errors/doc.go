// Package errors provides the classified error primitives used across fwbuilder.
//
// A ClassifiedError carries a category, a severity, a retry strategy and
// structured context. Packages declare sentinel values built from this package
// and compare against them with the standard errors.Is:
//
//	var ErrWriteFailed = errors.FileSystemError("configuration file could not be written").Build()
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, ErrWriteFailed.Message()).
//		WithContext("path", path).
//		Build()
//	stdErrors.Is(err, ErrWriteFailed) // true
//
// Matching compares category and message only, so context and cause may differ.
// The CLIErrorAdapter maps categories to process exit codes.
package errors

// Package errs defines the error taxonomy shared by the indexing pipeline.
//
// Every error raised by a pipeline stage is an *Error whose Kind is one of the
// sentinel kinds below, so callers can classify failures with errors.Is while
// still reaching the underlying cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels. An *Error matches exactly one of them.
var (
	ErrLoad       = errors.New("load error")
	ErrProcessing = errors.New("processing error")
	ErrChunking   = errors.New("chunking error")
	ErrEmbedding  = errors.New("embedding error")
	ErrStorage    = errors.New("storage error")
)

// Cause sentinels, wrapped inside an *Error of the matching kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrMissingMetadata   = errors.New("missing required metadata field")
	ErrInvalidDocType    = errors.New("invalid document type")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidFilter     = errors.New("invalid filter expression")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Error is a classified pipeline error.
type Error struct {
	Kind  error  // one of ErrLoad, ErrProcessing, ErrChunking, ErrEmbedding, ErrStorage
	Stage string // pipeline stage that raised the error, e.g. "load"
	Path  string // document path, empty for configuration-scope errors
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Stage != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Stage)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// TypeName returns the taxonomy name of the error kind, used in logs and run summaries.
func (e *Error) TypeName() string {
	return TypeName(e.Kind)
}

// TypeName maps a kind sentinel (or any error wrapping one) to its taxonomy name.
func TypeName(err error) string {
	switch {
	case errors.Is(err, ErrLoad):
		return "LoadError"
	case errors.Is(err, ErrProcessing):
		return "ProcessingError"
	case errors.Is(err, ErrChunking):
		return "ChunkingError"
	case errors.Is(err, ErrEmbedding):
		return "EmbeddingError"
	case errors.Is(err, ErrStorage):
		return "StorageError"
	default:
		return "Error"
	}
}

func newError(kind error, stage, path string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}

// Load wraps err as a LoadError for the document at path.
func Load(path string, err error) *Error { return newError(ErrLoad, "load", path, err) }

// Processing wraps err as a ProcessingError raised at stage.
func Processing(stage, path string, err error) *Error {
	return newError(ErrProcessing, stage, path, err)
}

// Chunking wraps err as a ChunkingError.
func Chunking(err error) *Error { return newError(ErrChunking, "segment", "", err) }

// Embedding wraps err as an EmbeddingError.
func Embedding(path string, err error) *Error { return newError(ErrEmbedding, "embed", path, err) }

// Storage wraps err as a StorageError.
func Storage(stage string, err error) *Error { return newError(ErrStorage, stage, "", err) }

// WithPath returns err annotated with the document path when the *Error it
// carries has none. Context wrapped around that *Error is kept.
func WithPath(err error, path string) error {
	if e, ok := err.(*Error); ok {
		if e.Path != "" {
			return err
		}
		cp := *e
		cp.Path = path
		return &cp
	}
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		return newError(e.Kind, e.Stage, path, err)
	}
	return err
}

// StageOf reports the stage recorded on err, or fallback when err carries none.
func StageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Stage != "" {
		return e.Stage
	}
	return fallback
}

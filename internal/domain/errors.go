package domain

import (
	"errors"
	"fmt"
)

type ErrorType int

const (
	ErrorTypeValidation ErrorType = iota
	ErrorTypeNotFound
	ErrorTypeConfiguration
	ErrorTypeStorage
	ErrorTypeUnavailable
	ErrorTypeInternal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeStorage:
		return "storage"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

type Error struct {
	Type    ErrorType
	Message string
	Details map[string]interface{}
}

func (e Error) Error() string {
	return e.Message
}

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func NewNodeError(node string, err error) *NodeError {
	return &NodeError{Node: node, Err: err}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrClosed            = errors.New("closed")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrSearchUnavailable = errors.New("search index unavailable")
	ErrQueueFull         = errors.New("index queue full")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsSearchUnavailable(err error) bool {
	return errors.Is(err, ErrSearchUnavailable)
}

func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

func IsNodeError(err error) bool {
	var nodeErr *NodeError
	return errors.As(err, &nodeErr)
}

func IsConfigurationError(err error) bool {
	var typed Error
	if errors.As(err, &typed) {
		return typed.Type == ErrorTypeConfiguration
	}
	return errors.Is(err, ErrInvalidConfig)
}

func IsValidationError(err error) bool {
	var typed Error
	return errors.As(err, &typed) && typed.Type == ErrorTypeValidation
}

package rpc

import (
	"errors"
	"fmt"
)

var (
	ErrClosed         = errors.New("rpc client is closed")
	ErrPlayerNotFound = errors.New("player not found")
	ErrMalformed      = errors.New("malformed rpc message")
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// CallError is an error object carried by a JSON-RPC response.
type CallError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

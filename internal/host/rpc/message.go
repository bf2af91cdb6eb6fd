package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const jsonrpcVersion = "2.0"

type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *CallError      `json:"error,omitempty"`
}

func decodeMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Method == "" && !msg.hasID() {
		return nil, fmt.Errorf("%w: neither method nor id", ErrMalformed)
	}
	return &msg, nil
}

func (m *message) hasID() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, []byte("null"))
}

func (m *message) isRequest() bool      { return m.Method != "" && m.hasID() }
func (m *message) isNotification() bool { return m.Method != "" && !m.hasID() }
func (m *message) isResponse() bool     { return m.Method == "" && m.hasID() }

// numericID reports the id of a response to one of our calls.
func (m *message) numericID() (uint64, bool) {
	id, err := strconv.ParseUint(string(m.ID), 10, 64)
	return id, err == nil
}

func newRequest(id uint64, method string, params any) (*message, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &message{
		JSONRPC: jsonrpcVersion,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
		Method:  method,
		Params:  raw,
	}, nil
}

func newNotification(method string, params any) (*message, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &message{JSONRPC: jsonrpcVersion, Method: method, Params: raw}, nil
}

func newResult(id json.RawMessage, result any) (*message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &message{JSONRPC: jsonrpcVersion, ID: id, Result: raw}, nil
}

func newError(id json.RawMessage, code int, msg string) *message {
	return &message{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &CallError{Code: code, Message: msg},
	}
}

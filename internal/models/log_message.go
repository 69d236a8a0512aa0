package models

import (
	"encoding/json"
	"unicode/utf8"
)

// LogMessage 消息总线上的日志信封（UTF-8 JSON，至少包含 log 字段）
type LogMessage struct {
	Log string `json:"log"`
}

// DecodeLogMessage 解码原始消息字节
func DecodeLogMessage(raw []byte) (*LogMessage, error) {
	if !utf8.Valid(raw) {
		return nil, &DataFormatError{Message: "message is not valid UTF-8"}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &DataFormatError{Message: "message is not a JSON object: " + err.Error()}
	}

	rawLog, ok := envelope["log"]
	if !ok {
		return nil, ErrMissingLogField
	}

	msg := &LogMessage{}
	if err := json.Unmarshal(rawLog, &msg.Log); err != nil {
		return nil, &DataFormatError{Message: "log field is not a string"}
	}

	return msg, nil
}

// ErrMissingLogField 缺少 log 字段
var ErrMissingLogField = &DataFormatError{Message: "missing log field"}

// DataFormatError 数据格式错误类型
type DataFormatError struct {
	Message string
}

func (e *DataFormatError) Error() string {
	return e.Message
}

package assembler

import "fmt"

// MalformedPayloadError 已识别类别的消息不符合其文本格式
type MalformedPayloadError struct {
	Kind   Kind
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s message: %s", e.Kind, e.Reason)
}

func malformed(kind Kind, format string, args ...any) error {
	return &MalformedPayloadError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// UnparseableNameError 姓名分词数量既不是 2 也不是 3
type UnparseableNameError struct {
	Name   string
	Tokens int
}

func (e *UnparseableNameError) Error() string {
	return fmt.Sprintf("cannot split name %q into first/last: %d tokens", e.Name, e.Tokens)
}

// SinkUnavailableError 存储读写失败
type SinkUnavailableError struct {
	Op  string
	Err error
}

func (e *SinkUnavailableError) Error() string {
	return fmt.Sprintf("sink unavailable during %s: %v", e.Op, e.Err)
}

func (e *SinkUnavailableError) Unwrap() error {
	return e.Err
}

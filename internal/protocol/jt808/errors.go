package jt808

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// 错误类别：调用方通过 errors.Is 判断
var (
	ErrTruncatedHeader             = errors.New("jt808: truncated header")
	ErrMalformedPhoneNumber        = errors.New("jt808: malformed phone number")
	ErrBodyLengthMismatch          = errors.New("jt808: body length mismatch")
	ErrBodyTooShort                = errors.New("jt808: body too short")
	ErrBodyTooLong                 = errors.New("jt808: body too long")
	ErrUnknownMessageType          = errors.New("jt808: unknown message type")
	ErrInvalidEnumValue            = errors.New("jt808: invalid enum value")
	ErrInvalidFieldValue           = errors.New("jt808: invalid field value")
	ErrInconsistentSubpackageCount = errors.New("jt808: inconsistent subpackage count")
	ErrStringTooLong               = errors.New("jt808: string too long")
	ErrMessageIDMismatch           = errors.New("jt808: message id mismatch")

	// 帧层错误（转义/校验）
	ErrFrameTooShort    = errors.New("jt808: frame too short")
	ErrBadEscape        = errors.New("jt808: bad escape sequence")
	ErrChecksumMismatch = errors.New("jt808: checksum mismatch")
)

// BodyTooShortError 消息体长度不足，携带需要与实际长度
type BodyTooShortError struct {
	MessageID uint16
	Required  int
	Actual    int
}

func (e *BodyTooShortError) Error() string {
	return fmt.Sprintf("jt808: body too short for 0x%04X: required %d bytes, got %d", e.MessageID, e.Required, e.Actual)
}

func (e *BodyTooShortError) Unwrap() error { return ErrBodyTooShort }

// UnknownMessageError 未注册的消息ID，原样携带消息体以便上层记录后跳过
type UnknownMessageError struct {
	MessageID uint16
	Body      []byte
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("jt808: unknown message type 0x%04X (body=%s)", e.MessageID, hex.EncodeToString(e.Body))
}

func (e *UnknownMessageError) Unwrap() error { return ErrUnknownMessageType }

// FieldError 字段取值非法（枚举越界或数值不合法）
type FieldError struct {
	Field string
	Value any
	Kind  error // ErrInvalidEnumValue | ErrInvalidFieldValue | ErrStringTooLong
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s=%v", e.Kind, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func invalidEnum(field string, v any) error {
	return &FieldError{Field: field, Value: v, Kind: ErrInvalidEnumValue}
}

func invalidField(field string, v any) error {
	return &FieldError{Field: field, Value: v, Kind: ErrInvalidFieldValue}
}

// IsSoft 是否为可跳过的错误：仅未知消息类型，不应中断解码流
func IsSoft(err error) bool {
	return errors.Is(err, ErrUnknownMessageType)
}

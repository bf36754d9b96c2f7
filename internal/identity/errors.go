package identity

import (
	"errors"
	"fmt"
)

type ErrorCode string

// The codes are part of the identity plugin contract and are returned verbatim to clients.
const (
	ErrCodeInvalidNode           ErrorCode = "Invalid_Node"
	ErrCodeInvalidDID            ErrorCode = "Invalid_DID"
	ErrCodeDIDNotFound           ErrorCode = "DID_Not_Found"
	ErrCodeInvalidDIDMethod      ErrorCode = "Invalid_DID_Method"
	ErrCodeDIDNotVerified        ErrorCode = "DID_Not_Verified"
	ErrCodeInvalidSigningKey     ErrorCode = "Invalid_Signing_Key"
	ErrCodeNotSupportedSignature ErrorCode = "Not_Supported_Signature"
	ErrCodeInvalidDataType       ErrorCode = "Invalid_Data_Type"
	ErrCodeNotSigned             ErrorCode = "JSON_Doc_Not_Signed"
	ErrCodeRuntime               ErrorCode = "Runtime_Error"
)

// IdentityError is returned by the resolver, the registries and the presentation helpers.
type IdentityError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *IdentityError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *IdentityError) Code() ErrorCode { return e.code }
func (e *IdentityError) Unwrap() error   { return e.wrapped }

// NewError creates an identity error with an explicit code.
func NewError(code ErrorCode, msg string) error {
	return &IdentityError{code: code, message: msg}
}

// WrapError wraps err as an identity error with the given code.
func WrapError(err error, code ErrorCode, msg string) error {
	return &IdentityError{code: code, message: msg, wrapped: err}
}

func NewInvalidNodeError(node string) error {
	return &IdentityError{code: ErrCodeInvalidNode, message: fmt.Sprintf("invalid node %q", node)}
}

func NewInvalidDIDError(did string) error {
	return &IdentityError{code: ErrCodeInvalidDID, message: fmt.Sprintf("invalid DID %q", did)}
}

func NewDIDNotFoundError(err error, did string) error {
	return &IdentityError{code: ErrCodeDIDNotFound, message: "DID cannot be resolved: " + did, wrapped: err}
}

func NewDIDNotVerifiedError(err error, did string) error {
	return &IdentityError{code: ErrCodeDIDNotVerified, message: "DID cannot be verified: " + did, wrapped: err}
}

func NewInvalidDIDMethodError(method string) error {
	return &IdentityError{code: ErrCodeInvalidDIDMethod, message: "the DID method supplied is not valid: " + method}
}

func NewInvalidSigningKeyError(err error) error {
	return &IdentityError{code: ErrCodeInvalidSigningKey, message: "the key supplied is not valid", wrapped: err}
}

func NewNotSupportedSignatureError(msg string) error {
	return &IdentityError{code: ErrCodeNotSupportedSignature, message: msg}
}

func NewInvalidDataTypeError(err error, msg string) error {
	return &IdentityError{code: ErrCodeInvalidDataType, message: msg, wrapped: err}
}

func NewNotSignedError(err error, msg string) error {
	return &IdentityError{code: ErrCodeNotSigned, message: msg, wrapped: err}
}

func NewRuntimeError(err error, msg string) error {
	return &IdentityError{code: ErrCodeRuntime, message: msg, wrapped: err}
}

// CodeOf returns the code of the first IdentityError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var idErr *IdentityError
	if errors.As(err, &idErr) {
		return idErr.code
	}
	return ""
}

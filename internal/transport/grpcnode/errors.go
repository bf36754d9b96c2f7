package grpcnode

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// mapErr converts a ledger error into a gRPC status. The message is kept so the
// client can rebuild the ledger error.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch ledger.CodeOf(err) {
	case ledger.ErrCodeValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case ledger.ErrCodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case ledger.ErrCodeConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	case ledger.ErrCodeForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case ledger.ErrCodeAnchorageNotFound:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// mapRPC is the inverse of mapErr. Errors that are not gRPC statuses (or carry
// transport codes such as Unavailable) become internal ledger errors.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return ledger.WrapInternalError(err, "node call failed")
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return ledger.NewError(ledger.ErrCodeValidation, st.Message())
	case codes.NotFound:
		return ledger.NewError(ledger.ErrCodeNotFound, st.Message())
	case codes.AlreadyExists:
		return ledger.NewError(ledger.ErrCodeConflict, st.Message())
	case codes.PermissionDenied:
		return ledger.NewError(ledger.ErrCodeForbidden, st.Message())
	case codes.FailedPrecondition:
		return ledger.NewError(ledger.ErrCodeAnchorageNotFound, st.Message())
	default:
		return ledger.WrapInternalError(err, "node call failed")
	}
}

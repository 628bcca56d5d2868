package grpcstore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/weakdom/rbxml/blobstore"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return blobstore.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed/undefined CIDs.
		return blobstore.ErrInvalidCID
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested CID.
		return blobstore.ErrCIDMismatch
	default:
		// Best-effort: if the server sent a known blobstore error message, preserve it.
		switch st.Message() {
		case blobstore.ErrNotFound.Error():
			return blobstore.ErrNotFound
		case blobstore.ErrInvalidCID.Error():
			return blobstore.ErrInvalidCID
		case blobstore.ErrCIDMismatch.Error():
			return blobstore.ErrCIDMismatch
		default:
			return err
		}
	}
}

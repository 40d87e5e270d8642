package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ucmd/internal/ucm"
)

// toHTTPError maps a use case manager error onto an HTTP status.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if e, ok := err.(*ucm.Error); ok {
		msg = e.Message
	}

	switch ucm.CodeOf(err) {
	case ucm.CodeInvalidArgument:
		return huma.Error400BadRequest(msg, err)
	case ucm.CodeNotFound:
		return huma.Error404NotFound(msg, err)
	case ucm.CodeNoSuchDevice, ucm.CodeDeviceBusy:
		return huma.Error409Conflict(msg, err)
	case ucm.CodeUnsupported:
		return huma.Error501NotImplemented(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

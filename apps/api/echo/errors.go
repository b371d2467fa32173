package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/syncstore"
)

var (
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpUnavailable = echo.NewHTTPError(http.StatusBadGateway, "record store unavailable; change reverted")
)

// remoteError marks a failure of the record store. It has no Cause so errors.Cause stops here.
type remoteError struct {
	err error
}

func (e *remoteError) Error() string { return e.err.Error() }

// storeError classifies an error returned by the sync store.
func storeError(err error, msg string) error {
	switch errors.Cause(err) {
	case syncstore.ErrNoIdentity, syncstore.ErrNotFound, context.Canceled:
		return errors.Wrap(err, msg)
	}
	return &remoteError{errors.Wrap(err, msg)}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *remoteError:
			code = errHttpUnavailable.Code
			message = errHttpUnavailable.Message
			logger.Warn(origErr.Error(), origErr.err)
		default:
			switch origErr {
			case syncstore.ErrNoIdentity:
				code = http.StatusUnauthorized
				message = origErr.Error()
			case syncstore.ErrNotFound:
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

package errcodes

import (
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
	gologger "github.com/robinjoseph08/golib/logger"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// Handle is an Echo error handler. *Error values and Echo's own HTTP errors
// keep their status; anything else is rendered and logged as a 500.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}
	if c.Response().Committed {
		// Book bodies are streamed; a failure mid-stream can't change the status.
		log.Err(err).Warn("error after response was committed")
		return
	}

	body := h.body(err)
	switch {
	case body.StatusCode >= http.StatusInternalServerError:
		log.Err(err).Error("server error")
	case body.StatusCode == http.StatusUnauthorized, body.StatusCode == http.StatusForbidden:
		log.Debug("request rejected", gologger.Data{"code": body.Code, "path": c.Path()})
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(body.StatusCode)
	} else {
		err = c.JSON(body.StatusCode, errorEnvelope{body})
	}
	if err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func (h *Handler) body(err error) errorBody {
	var e *Error
	if errors.As(err, &e) {
		return errorBody{e.Code, e.Message, e.HTTPCode}
	}

	// Request bodies cut off by http.MaxBytesReader.
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		e = PayloadTooLarge(maxErr.Limit).(*Error)
		return errorBody{e.Code, e.Message, e.HTTPCode}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return errorBody{strcase.ToSnake(msg), msg, he.Code}
	}

	return errorBody{"internal_server_error", "Internal Server Error", http.StatusInternalServerError}
}

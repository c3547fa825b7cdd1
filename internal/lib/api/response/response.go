package response

import (
	"net/http"

	"github.com/go-chi/render"
)

// Response is the envelope returned by every JSON endpoint.
type Response struct {
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func OK(data any) Response {
	return Response{
		OK:   true,
		Data: data,
	}
}

func Error(code, msg string) Response {
	return Response{
		OK:        false,
		ErrorCode: code,
		Message:   msg,
	}
}

type MessageData struct {
	Message string `json:"message"`
}

func Message(msg string) Response {
	return OK(MessageData{Message: msg})
}

// Render writes resp with the given HTTP status.
func Render(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	render.Status(r, status)
	render.JSON(w, r, resp)
}

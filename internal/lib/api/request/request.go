package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ajg/form"
	"github.com/go-chi/render"
)

const (
	maxMemory = 1 << 20

	// MaxBodySize caps account request bodies, form file parts included.
	MaxBodySize = 1 << 20
)

// Decode fills v from a JSON body or from url-encoded / multipart form
// fields. Form fields are matched by the `form` struct tag, unknown keys are
// ignored. Bodies over MaxBodySize are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	if render.GetRequestContentType(r) == render.ContentTypeJSON {
		return render.DecodeJSON(r.Body, v)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}

	d := form.NewDecoder(strings.NewReader(r.Form.Encode()))
	d.IgnoreUnknownKeys(true)

	return d.Decode(v)
}

// ParseBool interprets the usual HTML form spellings of a checked box.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Flag is a checkbox-style field. Forms send it as text, JSON clients may
// send a bool or a number instead.
type Flag string

func (f *Flag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Flag(s)
		return nil
	}

	if string(data) == "null" {
		*f = ""
		return nil
	}

	*f = Flag(data)

	return nil
}

func (f Flag) Bool() bool {
	return ParseBool(string(f))
}

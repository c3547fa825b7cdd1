package root

import (
	"net/http"

	"github.com/go-chi/render"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Status:  "ok",
			Message: "Canalyzer backend is running",
		})
	}
}

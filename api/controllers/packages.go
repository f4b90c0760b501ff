package controllers

import (
	"net/http"

	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/internal/catalog"
)

// Packages returns the static credit bundle catalog.
func Packages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, catalog.Packages())
	}
}

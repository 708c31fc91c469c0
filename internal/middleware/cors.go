package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the widget to call the API from the host application's origin.
// Copilot routes accept any method, so every verb the host may send is allowed.
var CORS = cors.Handler(cors.Options{
	AllowOriginFunc: func(r *http.Request, origin string) bool {
		return true
	},
	AllowedMethods: []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	},
	AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-CSRF-Token"},
	ExposedHeaders: []string{"X-Request-Id"},
	MaxAge:         300,
})

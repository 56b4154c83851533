package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/models"
)

// Page holds the page number for pagination
var Page int

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}

// requirePrincipal pulls the authenticated principal off the request context.
// The auth middleware always sets it, so a miss means the route is wired
// without Middleware.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no authenticated principal", http.StatusUnauthorized, w, errors.New("missing principal in request context"))
		return models.Principal{}, false
	}
	return principal, true
}

// domainErrorStatus maps a core error kind to its HTTP status and writes the
// error response.
func domainErrorStatus(message string, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInsufficientCount):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrAlreadyMerged),
		errors.Is(err, models.ErrCaseClosed):
		code = http.StatusConflict
	}
	config.ErrorStatus(message, code, w, err)
}

package handler

import (
	"net/http"

	"buddy-api/common"
)

// ErrorHandlingMiddleware adapts a handler that returns *common.AppError to
// an http.HandlerFunc, writing the error body when one is returned.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

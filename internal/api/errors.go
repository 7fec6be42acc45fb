package api

import (
	"errors"
	"net/http"

	"pumpwatch/internal/model"
)

func statusFor(err error) int {
	var unavailable *model.StoreUnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

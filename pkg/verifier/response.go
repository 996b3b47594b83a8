package verifier

import (
	"encoding/json"
	"net/http"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
)

// WriteError writes the venue's {"errors":[{"msg":...}]} body.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, types.ErrorResponse{Errors: []types.ErrorDetail{{Msg: msg}}})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

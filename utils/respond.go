package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared request validator. Struct tags on request bodies
// define the field rules.
var Validate = validator.New()

// RespondJSON writes v as a JSON body with the given status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// RespondError writes the single-error envelope {"error": msg}.
func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"error": msg})
}

// RespondMessage writes the success-message envelope {"message": msg}.
func RespondMessage(w http.ResponseWriter, msg string) {
	RespondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// RespondServerError logs the underlying error and returns a generic 500.
// Internal details never reach the client.
func RespondServerError(w http.ResponseWriter, err error) {
	log.Printf("Server error: %v", err)
	RespondError(w, http.StatusInternalServerError, "Server error")
}

// RespondValidationErrors writes per-field validation failures as
// {"errors": [...]} with HTTP 400.
func RespondValidationErrors(w http.ResponseWriter, err error) {
	var errs []map[string]string
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			errs = append(errs, map[string]string{
				"field": fe.Field(),
				"msg":   fmt.Sprintf("failed on '%s' rule", fe.Tag()),
			})
		}
	} else {
		errs = append(errs, map[string]string{"msg": err.Error()})
	}
	RespondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

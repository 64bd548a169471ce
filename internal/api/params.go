package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDParam parses the named chi URL parameter as a MongoDB ObjectID.
// label names the resource in the 400 message.
func ObjectIDParam(r *http.Request, name, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, WrapError(http.StatusBadRequest, fmt.Sprintf("Invalid %s id", label), err)
	}
	return id, nil
}

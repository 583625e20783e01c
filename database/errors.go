package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"govbook/models"
)

// Wrap translates driver errors into the engine's taxonomy.
// Misses become ErrNotFound; network, timeout and selection failures become StorageUnavailableError.
// Anything else is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err):
		return models.NewStorageUnavailable(op, err)
	}
	var sel mongo.ServerError
	if errors.As(err, &sel) {
		return err
	}
	return models.NewStorageUnavailable(op, err)
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

package bookstore

import "github.com/jmgilman/go/errors"

// ValidateID rejects ids that can never name a book. Use it with
// cache.WithKeyValidator.
func ValidateID(id int64) error {
	if id <= 0 {
		return errors.Newf(errors.CodeInvalidInput, "book id must be positive, got %d", id)
	}
	return nil
}

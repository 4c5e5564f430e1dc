package postgres

import (
	"errors"

	"github.com/dom/faceoff/internal/repository"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the repository sentinels. The connection
// is opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

package common

import (
	"database/sql"
	"errors"
)

// IsNoRows сообщает, что запрос не вернул строк.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

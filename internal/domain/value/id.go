package value

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// ParseID разбирает положительный целочисленный идентификатор из пути запроса.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}

	return id, nil
}

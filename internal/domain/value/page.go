package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPageNumber при нём Offset()+Size не переполняет int.
	MaxPageNumber = math.MaxInt / MaxPageSize
)

var ErrInvalidPage = errors.New("invalid page")

// Page номер страницы (с единицы) и её размер.
type Page struct {
	Number int
	Size   int
}

// ParsePage разбирает параметры запроса; пустые значения заменяются значениями по умолчанию.
func ParsePage(number, size string) (Page, error) {
	p := Page{Number: 1, Size: DefaultPageSize}

	if number != "" {
		n, err := strconv.Atoi(number)
		if err != nil || n < 1 || n > MaxPageNumber {
			return Page{}, fmt.Errorf("%w: page %q", ErrInvalidPage, number)
		}
		p.Number = n
	}

	if size != "" {
		s, err := strconv.Atoi(size)
		if err != nil || s < 1 || s > MaxPageSize {
			return Page{}, fmt.Errorf("%w: page_size %q", ErrInvalidPage, size)
		}
		p.Size = s
	}

	return p, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasNext сообщает, есть ли элементы после текущей страницы.
func (p Page) HasNext(total int) bool {
	return p.Offset()+p.Size < total
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

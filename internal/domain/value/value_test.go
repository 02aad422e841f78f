package value_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain/value"
)

func TestParsePage(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name   string
		number string
		size   string
		want   value.Page
		err    bool
	}{
		{name: "Defaults", want: value.Page{Number: 1, Size: value.DefaultPageSize}},
		{name: "Explicit", number: "3", size: "20", want: value.Page{Number: 3, Size: 20}},
		{name: "Zero page", number: "0", err: true},
		{name: "Garbage size", size: "abc", err: true},
		{name: "Too large size", size: "101", err: true},
		{name: "Max page", number: strconv.Itoa(value.MaxPageNumber), size: "100", want: value.Page{Number: value.MaxPageNumber, Size: 100}},
		{name: "Page overflows offset", number: "4611686018427387905", size: "2", err: true},
		{name: "Page above max", number: strconv.Itoa(value.MaxPageNumber + 1), err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			page, err := value.ParsePage(tc.number, tc.size)
			if tc.err {
				rq.ErrorIs(err, value.ErrInvalidPage)
				return
			}

			rq.NoError(err)
			rq.Equal(tc.want, page)
		})
	}
}

func TestPageNavigation(t *testing.T) {
	rq := require.New(t)

	p := value.Page{Number: 2, Size: 10}
	rq.Equal(10, p.Offset())
	rq.True(p.HasPrevious())
	rq.True(p.HasNext(21))
	rq.False(p.HasNext(20))
	rq.False(value.Page{Number: 1, Size: 10}.HasPrevious())

	last := value.Page{Number: value.MaxPageNumber, Size: value.MaxPageSize}
	rq.GreaterOrEqual(last.Offset(), 0)
	rq.False(last.HasNext(100))
}

func TestParseID(t *testing.T) {
	rq := require.New(t)

	id, err := value.ParseID("42")
	rq.NoError(err)
	rq.Equal(int64(42), id)

	for _, raw := range []string{"", "0", "-1", "x1"} {
		_, err = value.ParseID(raw)
		rq.ErrorIs(err, value.ErrInvalidID, raw)
	}
}

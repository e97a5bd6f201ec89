package sqllex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"users":       "`users`",
		"shop.orders": "`shop`.`orders`",
		"u.*":         "`u`.*",
		"`done`":      "`done`",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, QuoteIdentifier(in), in)
	}
}

func TestQuoteExpr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "name", want: "`name`"},
		{in: "COUNT(id)", want: "COUNT(`id`)"},
		{in: "COUNT(a, b) AS total", want: "COUNT(`a`, `b`) AS `total`"},
		{in: "u.name", want: "`u`.`name`"},
		{in: "IFNULL(nick, 'n/a')", want: "IFNULL(`nick`, 'n/a')"},
		{in: "CONCAT(first, ' ', last)", want: "CONCAT(`first`, ' ', `last`)"},
		{in: "'it''s' AS quote", want: "'it''s' AS `quote`"},
		{in: "`already` AS x", want: "`already` AS `x`"},
		{in: "price * 2", want: "`price` * 2"},
		{in: "1", want: "1"},
		{in: "2x", want: "2x"},
		{in: "DISTINCT city", want: "DISTINCT `city`"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteExpr(tt.in))
		})
	}
}

func TestQuoteOrderBy(t *testing.T) {
	assert.Equal(t, "`created` DESC, `id`", QuoteOrderBy("created desc, id"))
	assert.Equal(t, "`name` ASC", QuoteOrderBy("name Asc"))
	assert.Equal(t, "`t`.`rank` DESC", QuoteOrderBy("t.rank DESC"))
	assert.Equal(t, "FIELD(`status`, 'new', 'old')", QuoteOrderBy("FIELD(status, 'new', 'old')"))
}

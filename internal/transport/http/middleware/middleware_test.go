package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "well formed", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "surrounding whitespace", header: "  Bearer abc  ", want: "abc"},
		{name: "empty header", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "missing token", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bearerToken(tt.header))
		})
	}
}

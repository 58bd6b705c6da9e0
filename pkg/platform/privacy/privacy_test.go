package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "203.0.113.9", want: "203.0.x.x"},
		{input: "10.1.2.3", want: "10.1.x.x"},
		{input: "2001:db8::1", want: "2001:db8::"},
		{input: "::1", want: ":::"},
		{input: "", want: ""},
		{input: "not-an-ip", want: "invalid"},
		{input: "1.2.3", want: "invalid"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AnonymizeIP(tt.input), "input=%q", tt.input)
	}
}

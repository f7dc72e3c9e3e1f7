package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses spaces and drops blank lines",
			in:   "Respected   Sir,\t\n\n   \nI am unwell\r\n",
			want: "Respected Sir,\nI am unwell",
		},
		{
			name: "removes symbols and smart double quotes",
			in:   "I am “sick” – fever ★",
			want: "I am sick fever",
		},
		{
			name: "normalises smart apostrophes",
			in:   "my sister’s wedding",
			want: "my sister's wedding",
		},
		{
			name: "keeps dates and basic punctuation",
			in:   "On 12/01/2024 (Friday): absent; sorry!",
			want: "On 12/01/2024 (Friday): absent; sorry!",
		},
		{
			name: "keeps non-latin letters",
			in:   "छुट्टी  request",
			want: "छुट्टी request",
		},
		{
			name: "empty",
			in:   " \n\t ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

package cmd

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultValue bool
		want         bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "YES\n", want: true},
		{name: "no", input: "n\n", defaultValue: true, want: false},
		{name: "empty takes default true", input: "\n", defaultValue: true, want: true},
		{name: "empty takes default false", input: "\n", want: false},
		{name: "eof takes default", input: "", defaultValue: true, want: true},
		{name: "garbage is no", input: "maybe\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := promptYesNo(bufio.NewReader(strings.NewReader(tt.input)), &out, "Continue?", tt.defaultValue)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Continue?")
		})
	}
}

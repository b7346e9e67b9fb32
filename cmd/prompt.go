package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptYesNo prompts for a yes/no response. EOF or a read error returns
// defaultValue.
func promptYesNo(reader *bufio.Reader, w io.Writer, prompt string, defaultValue bool) bool {
	defaultStr := "N"
	if defaultValue {
		defaultStr = "Y"
	}

	for {
		fmt.Fprintf(w, "%s [y/N] (default: %s): ", prompt, defaultStr)
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))
		if err != nil && input == "" {
			return defaultValue
		}

		switch input {
		case "":
			return defaultValue
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}

		if err != nil {
			return defaultValue
		}
		errorColor.Fprintln(w, "Please enter 'y' or 'n'")
	}
}

// Package main is the entry point of the alertfilter service and CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"alertfilter/cmd"
)

// checkSecurityViolations refuses to run with authentication disabled through
// the environment in a production deployment.
func checkSecurityViolations() {
	authEnabled := strings.ToLower(os.Getenv("ALERTFILTER_AUTH_ENABLED"))
	if authEnabled != "false" && authEnabled != "0" {
		return
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "production" || environment == "prod" {
		fmt.Fprintf(os.Stderr, "FATAL SECURITY VIOLATION: ALERTFILTER_AUTH_ENABLED=%s in production environment\n", authEnabled)
		fmt.Fprintf(os.Stderr, "Without authentication the X-User-ID header is trusted as the caller identity\n")
		fmt.Fprintf(os.Stderr, "To fix: Unset ALERTFILTER_AUTH_ENABLED and configure auth.jwt_secret\n")
		os.Exit(1)
	}
}

func main() {
	checkSecurityViolations()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

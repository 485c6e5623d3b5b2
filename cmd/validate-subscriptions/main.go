package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-dispatch/subscription"
)

/* validate-subscriptions - Standalone CLI tool to validate subscriptions.yaml
 * Usage: go run cmd/validate-subscriptions/main.go [subscriptions.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	subsFile := "subscriptions.yaml"
	if len(os.Args) > 1 {
		subsFile = os.Args[1]
	}

	fmt.Printf("Validating subscriptions file: %s\n\n", subsFile)

	loader := subscription.NewLoader()
	if err := loader.Load(subsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	subs := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d subscription(s):\n", len(subs))

	for i, sub := range subs {
		fmt.Printf("\n%d. Subscription: %s\n", i+1, sub.Name)
		fmt.Printf("   Destination URL: %s\n", sub.DestinationURL)
		fmt.Printf("   Event Types:     %s\n", strings.Join(sub.EventTypes, ", "))
		fmt.Printf("   Status:          %s\n", sub.Status)
		if sub.RetryCount > 0 {
			fmt.Printf("   Retry Count:     %d\n", sub.RetryCount)
		}
		if sub.Secret != "" {
			fmt.Printf("   Secret:          (set)\n")
		}
		for _, f := range sub.Filters {
			fmt.Printf("   Filter:          [%s] %s\n", f.Format, f.Expression)
		}
	}

	fmt.Printf("\n✓ All subscriptions are valid!\n")
	os.Exit(0)
}

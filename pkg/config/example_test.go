package config_test

import (
	"fmt"

	"github.com/dbadmin-ai/governor/pkg/config"
)

func Example_parse() {
	data := []byte(`
breaker:
  failure_threshold: 3
  cooldown_seconds: 30
`)

	file, err := config.Parse(data)
	if err != nil {
		fmt.Println("parse failed:", err)
		return
	}
	if err := file.Validate(); err != nil {
		fmt.Println("invalid:", err)
		return
	}

	fmt.Println("threshold:", file.Breaker.FailureThreshold)
	fmt.Println("cooldown:", file.Breaker.CooldownSeconds, "seconds")
	fmt.Println("attempts:", file.Retry.MaxAttempts)
	// Output:
	// threshold: 3
	// cooldown: 30 seconds
	// attempts: 3
}

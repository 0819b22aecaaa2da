// Package guard switches binaries into test mode when imported by their tests,
// so calling main() returns before dialing Postgres or Redis.
package guard

import "os"

// EnvVar is read by app.InTestMode.
const EnvVar = "ECOSERV_TEST_MODE"

func init() {
	if os.Getenv(EnvVar) == "" {
		_ = os.Setenv(EnvVar, "1")
	}
}

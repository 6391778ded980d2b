package signerpool

import (
	"os"
	"sync"

	"github.com/joho/godotenv"

	relerrors "github.com/kora-labs/relayer/internal/errors"
)

var loadDotenvOnce sync.Once

// loadDotenv loads a .env file into the process environment exactly
// once per process, if one is present in the working directory. A
// missing .env file is not an error: operators running under a
// process manager or container orchestrator set env vars directly.
func loadDotenv() {
	loadDotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// envVar reads the environment variable named by key, required for
// signerName, returning an InvalidConfig error naming both if it is unset or empty.
func envVar(key, signerName string) (string, error) {
	loadDotenv()
	v := os.Getenv(key)
	if v == "" {
		return "", relerrors.InvalidConfig("signer %q: environment variable %s is not set", signerName, key)
	}
	return v, nil
}

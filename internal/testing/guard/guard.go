// Package guard flips the application into test mode as a side effect of
// being imported from _test files.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AEGIS_TEST_MODE") == "" {
			_ = os.Setenv("AEGIS_TEST_MODE", "1")
		}
	})
}

package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("EVENTREG_TEST_MODE") == "" {
			_ = os.Setenv("EVENTREG_TEST_MODE", "1")
		}
	})
}

package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// credentialMinLength and credentialPrefixes implement the advisory
// credential check from §6: non-empty, begins with a known prefix,
// minimum length >= 20. The service's own response is the authoritative
// check; this only avoids obviously-wrong submissions.
const credentialMinLength = 20

var credentialPrefixes = []string{"sk-", "gsk_"}

// credentialCache memoizes validation results in memory for the lifetime
// of the process; it does not persist across separate CLI invocations.
var credentialCache = cache.New(24*time.Hour, time.Hour)

// ValidateCredential checks cred against the advisory shape the
// transcription service expects, caching the result by credential value.
func ValidateCredential(cred string) error {
	if v, ok := credentialCache.Get(cred); ok {
		if v.(bool) {
			return nil
		}
		return fmt.Errorf("dispatch: credential failed advisory validation")
	}

	err := validateCredentialUncached(cred)
	credentialCache.Set(cred, err == nil, cache.DefaultExpiration)
	return err
}

func validateCredentialUncached(cred string) error {
	if cred == "" {
		return fmt.Errorf("dispatch: credential is empty")
	}
	if len(cred) < credentialMinLength {
		return fmt.Errorf("dispatch: credential shorter than %d characters", credentialMinLength)
	}
	for _, prefix := range credentialPrefixes {
		if strings.HasPrefix(cred, prefix) {
			return nil
		}
	}
	return fmt.Errorf("dispatch: credential does not begin with a known prefix")
}

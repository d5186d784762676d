package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Key derives a cache key from the inputs that fully determine a
// validation result. Two calls with the same instrument, cutoff date
// and formation kind always produce the same key.
func Key(instrument string, asOf time.Time, kind types.FormationKind) string {
	content := fmt.Sprintf("%s|%s|%s", instrument, asOf.UTC().Format("2006-01-02"), kind)
	sum := sha256.Sum256([]byte(content))

	return hex.EncodeToString(sum[:])
}

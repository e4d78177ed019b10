// Package determinism computes stable content hashes for analysis inputs
// and checks that repeated analysis of identical input stays within a
// pixel tolerance. The check is a diagnostic aid, not a correctness
// gate: the façade always returns the freshly computed result.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/okian/riskmap/internal/domain/geometry"
)

// Coordinates are rounded to this many decimals in unit space before
// hashing, so floating-point noise below rendering precision does not
// destabilize the hash.
const hashPrecisionDecimals = 3

// Hashes are truncated to this many hex characters; 64 bits of the
// digest is plenty for a diagnostic cache key.
const hashLength = 16

// ContentHash returns a stable hash over the unit-space landmark
// coordinates, the treatment area and the rule version. Changing the
// rule version intentionally produces a different hash so cached
// comparisons do not cross rule revisions.
func ContentHash(unitPoints []geometry.Point, area, ruleVersion string) string {
	var b strings.Builder
	for _, p := range unitPoints {
		fmt.Fprintf(&b, "%.*f,%.*f;", hashPrecisionDecimals, p.X, hashPrecisionDecimals, p.Y)
	}
	b.WriteString("|")
	b.WriteString(area)
	b.WriteString("|")
	b.WriteString(ruleVersion)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:hashLength]
}

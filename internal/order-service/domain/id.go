package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderIDLayout = "20060102-150405"

// NewOrderID builds ORD-<yyyyMMdd-HHmmss>-<8 uppercase hex>. The random part
// is the first four bytes of r. Collisions are only detected at commit.
func NewOrderID(now time.Time, r uuid.UUID) string {
	return "ORD-" + now.Format(orderIDLayout) + "-" + strings.ToUpper(hex.EncodeToString(r[:4]))
}

package quotations

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const refPrefix = "SFVQ"

// NewReferenceNumber produces the human-readable quotation code minted once
// at creation, e.g. SFVQ-20260831-9F2A41C7. The date token makes codes easy
// to eyeball; the random suffix keeps collisions negligible under concurrent
// creation. A unique constraint on ref_no backstops the remainder.
func NewReferenceNumber(now time.Time) string {
	u := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(u[:4]))
	return fmt.Sprintf("%s-%s-%s", refPrefix, now.Format("20060102"), suffix)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sku is a stock-keeping unit. Images attach to SKUs, not products, so this
// is the only catalog type the ingestion subsystem needs.
type Sku struct {
	ID        uuid.UUID
	SkuCode   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

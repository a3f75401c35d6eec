package service

import (
	"github.com/hollandwest/skadi/internal/domain"
)

// SKU image errors
var (
	ErrMissingSkuID = domain.Errorf(domain.EINVALID, "", "SKU id is required")
)

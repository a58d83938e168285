package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"lending-recon/internal/domain"
)

func TestValidateAmountsBalance(t *testing.T) {
	d := decimal.NewFromFloat

	assert.NoError(t, validateAmountsBalance(d(100.00), d(100.00)))
	assert.NoError(t, validateAmountsBalance(d(100.00), d(100.01)), "one cent is within tolerance")
	assert.NoError(t, validateAmountsBalance(d(100.01), d(100.00)))

	err := validateAmountsBalance(d(100.00), d(100.02))
	assert.Error(t, err)
	assert.True(t, domain.IsBalanceMismatch(err))

	err = validateAmountsBalance(d(75.50), d(80.00))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "do not balance")
}

func TestValidateAmountsBalance_AbsoluteNotRelative(t *testing.T) {
	d := decimal.NewFromFloat

	// The tolerance is one cent regardless of magnitude: a two-cent
	// gap on a large reconciliation still fails.
	assert.Error(t, validateAmountsBalance(d(1000000.00), d(1000000.02)))
	assert.NoError(t, validateAmountsBalance(d(1000000.00), d(1000000.01)))
}

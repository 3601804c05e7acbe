package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medagenda/clinic-scheduling/internal/billing"
)

func TestReceivable_ComputeNet(t *testing.T) {
	rec := billing.Receivable{
		OriginalAmount: money("200.00"),
		Discount:       money("20.00"),
		Interest:       money("5.50"),
		Penalty:        money("3.00"),
	}
	rec.ComputeNet()

	assert.True(t, rec.NetAmount.Equal(money("188.50")), "got %s", rec.NetAmount)
}

func TestReceivable_ComputeNetNoAdjustments(t *testing.T) {
	rec := billing.Receivable{OriginalAmount: money("250.00")}
	rec.ComputeNet()

	assert.True(t, rec.NetAmount.Equal(money("250.00")))
}

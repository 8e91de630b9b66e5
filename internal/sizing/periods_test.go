package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
)

func TestPeriods(t *testing.T) {
	monthly := Periods(Monthly)
	require.Len(t, monthly, 12)
	assert.Equal(t, "m01", monthly[0].Key)
	assert.Equal(t, 12, monthly[11].Month)
	for _, p := range monthly {
		assert.Equal(t, 30, p.Days)
	}

	bimonthly := Periods(Bimonthly)
	require.Len(t, bimonthly, 6)
	for i, p := range bimonthly {
		assert.Equal(t, 2*(i+1), p.Month)
		assert.Equal(t, 60, p.Days)
	}

	assert.Nil(t, Periods("weekly"))
}

func TestPeriods_ReturnsCopy(t *testing.T) {
	p := Periods(Monthly)
	p[0].Days = 1
	assert.Equal(t, 30, Periods(Monthly)[0].Days)
}

func TestParseBillingMode(t *testing.T) {
	mode, err := ParseBillingMode(" Bimonthly ")
	require.NoError(t, err)
	assert.Equal(t, Bimonthly, mode)

	_, err = ParseBillingMode("quarterly")
	assert.ErrorIs(t, err, models.ErrInvalidBillingMode)
}

func TestOrderConsumption(t *testing.T) {
	values := map[string]float64{"b1": 1, "b2": 2, "b3": 3, "b4": 4, "b5": 5, "b6": 6}

	ordered, err := OrderConsumption(Bimonthly, values)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, ordered)

	delete(values, "b4")
	_, err = OrderConsumption(Bimonthly, values)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	values["b4"] = 4
	values["m01"] = 10
	_, err = OrderConsumption(Bimonthly, values)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	delete(values, "m01")
	values["b2"] = -2
	_, err = OrderConsumption(Bimonthly, values)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

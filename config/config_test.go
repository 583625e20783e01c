package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mongo", cfg.Store)
	assert.Equal(t, "APT", cfg.AppointmentNumberPrefix)
	assert.Equal(t, 5, cfg.AppointmentNumberMaxAttempts)
	assert.Equal(t, 1000, cfg.FeedbackCommentMaxLength)
	assert.Equal(t, 1, cfg.DefaultSlotCapacity)
	assert.False(t, cfg.AllowDuplicateActiveBookings)
}

func TestCatalogFromYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
STORE: memory
CATALOG:
  - department: passports
    service: renewal
    maxAdvanceBookingDays: 30
    appointmentDuration: 20
    isActive: true
    defaultSlotCapacity: 4
`)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "memory", cfg.Store)
	require.Len(t, cfg.Catalog, 1)
	assert.Equal(t, "renewal", cfg.Catalog[0].Service)
	assert.Equal(t, 30, cfg.Catalog[0].MaxAdvanceBookingDays)
	assert.Equal(t, 20, cfg.Catalog[0].AppointmentDurationMinutes)
	assert.True(t, cfg.Catalog[0].IsActive)
	assert.Equal(t, 4, cfg.Catalog[0].DefaultSlotCapacity)
}

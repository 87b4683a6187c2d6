package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()

	assert.Equal(t, "db/migrations", o.MigrationsDir)
	assert.Equal(t, 30*time.Second, o.ReadyTimeout)
}

func TestOptions_WithDefaults_PreservesExplicitValues(t *testing.T) {
	o := Options{MigrationsDir: "custom/migrations", ReadyTimeout: 5 * time.Second}.withDefaults()

	assert.Equal(t, "custom/migrations", o.MigrationsDir)
	assert.Equal(t, 5*time.Second, o.ReadyTimeout)
}

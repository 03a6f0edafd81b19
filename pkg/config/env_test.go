package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and blanks", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CSV(tt.in))
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_STR", "value")
	t.Setenv("STOREFRONT_TEST_INT", "42")
	t.Setenv("STOREFRONT_TEST_BAD_INT", "forty-two")
	t.Setenv("STOREFRONT_TEST_BOOL", "true")
	t.Setenv("STOREFRONT_TEST_DUR", "90s")
	t.Setenv("STOREFRONT_TEST_BAD_DUR", "soon")

	assert.Equal(t, "value", EnvDefault("STOREFRONT_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefault("STOREFRONT_TEST_MISSING", "def"))

	assert.Equal(t, 42, EnvIntDefault("STOREFRONT_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("STOREFRONT_TEST_BAD_INT", 1))

	assert.True(t, EnvBoolDefault("STOREFRONT_TEST_BOOL", false))
	assert.True(t, EnvBoolDefault("STOREFRONT_TEST_MISSING", true))

	assert.Equal(t, 90*time.Second, EnvDurationDefault("STOREFRONT_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDurationDefault("STOREFRONT_TEST_BAD_DUR", time.Second))
}

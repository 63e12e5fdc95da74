package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	// Read config without setting config file
	{
		err := ReadInConfig()
		require.NoError(t, err)
		assert.Equal(t, 0, len(config))
	}

	// Read config from file
	{
		SetConfigFile("tstdata/ok.json")
		err := ReadInConfig()
		require.NoError(t, err)
		assert.Equal(t, 2, len(config))
	}

	// Missing file
	{
		SetConfigFile("tstdata/missing.json")
		err := ReadInConfig()
		require.Error(t, err)
	}

	// Not valid json
	{
		r := strings.NewReader(`{"timeout":"10m","executors":{`)
		err := ReadConfig(r)
		require.Error(t, err)
	}
}

func TestGet(t *testing.T) {
	config = map[string]interface{}{}

	// Empty config
	v := Get("timeout")
	assert.Nil(t, v)

	config = map[string]interface{}{
		"timeout": "10m",
		"executors": map[string]interface{}{
			"axis": "os",
			"docker": map[string]interface{}{
				"ubuntu": "ubuntu:22.04",
			},
		},
	}

	assert.Equal(t, "10m", GetString("timeout"))

	// Subpath of a scalar
	assert.Nil(t, Get("timeout.sub"))

	// Nested key
	assert.Equal(t, "ubuntu:22.04", GetString("executors.docker.ubuntu"))
}

type section struct {
	Axis   string            `mapstructure:"axis"`
	Docker map[string]string `mapstructure:"docker"`
	Extra  string            `mapstructure:"extra" env:"REGATTA_TEST_EXTRA"`
}

func TestUnmarshal(t *testing.T) {
	config = map[string]interface{}{
		"executors": map[string]interface{}{
			"axis": "os",
			"docker": map[string]interface{}{
				"ubuntu": "ubuntu:22.04",
			},
		},
	}

	os.Setenv("REGATTA_TEST_EXTRA", "fromenv")
	defer os.Unsetenv("REGATTA_TEST_EXTRA")

	var s section
	err := Unmarshal("executors", &s)
	require.NoError(t, err)
	assert.Equal(t, "os", s.Axis)
	assert.Equal(t, "ubuntu:22.04", s.Docker["ubuntu"])
	assert.Equal(t, "fromenv", s.Extra)

	// Missing section still applies env overrides
	var s2 section
	err = Unmarshal("nope", &s2)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", s2.Extra)
}

package device

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, TransportSerial, cfg.Transport)
	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, "127.0.0.1:7342", cfg.Address)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, uint64(10), cfg.ProgressInterval)
	assert.Equal(t, uint64(0), cfg.WatchdogInterval)
	assert.Equal(t, "ext_csd.bin", cfg.ExtCsdDumpPath)
	assert.Empty(t, cfg.EmulatorDir)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emmc-config.yaml")
	content := `transport: tcp
address: 10.0.0.2:9000
read_timeout: 750ms
progress_interval: 64
watchdog_interval: 256
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, TransportTCP, cfg.Transport)
	assert.Equal(t, "10.0.0.2:9000", cfg.Address)
	assert.Equal(t, 750*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, uint64(64), cfg.ProgressInterval)
	assert.Equal(t, uint64(256), cfg.WatchdogInterval)
}

func TestLoadConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "emmc-config.yaml"),
		[]byte("port: /dev/ttyACM3\n"), 0o644))
	testChdir(t, dir)

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM3", cfg.Port)
}

func TestLoadConfig_Environment(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("EMMC_TRANSPORT", "emulator")
	t.Setenv("EMMC_EMULATOR_DIR", "/tmp/emmc")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, TransportEmulator, cfg.Transport)
	assert.Equal(t, "/tmp/emmc", cfg.EmulatorDir)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("Missing Explicit File", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Invalid Transport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emmc-config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("transport: usb3\n"), 0o644))
		_, err := LoadConfig(viper.New(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown transport "usb3"`)
	})
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"Serial OK", Config{Transport: TransportSerial, Port: "/dev/ttyACM0", ReadTimeout: time.Second}, ""},
		{"Serial No Port", Config{Transport: TransportSerial, ReadTimeout: time.Second}, "requires a port"},
		{"TCP No Address", Config{Transport: TransportTCP, ReadTimeout: time.Second}, "requires an address"},
		{"Emulator No Dir", Config{Transport: TransportEmulator, ReadTimeout: time.Second}, "requires emulator_dir"},
		{"Zero Timeout", Config{Transport: TransportTCP, Address: "x:1"}, "read_timeout must be positive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

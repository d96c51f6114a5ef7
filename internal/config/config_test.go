package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datalogger_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# minimal\nSTORAGE_DIR=/media/sd\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "/media/sd", cfg.StorageDir)
	assert.Equal(t, "datalog.csv", cfg.StorageFile)
	assert.Equal(t, uint32(1000), cfg.CalibrationSamples)
	assert.Equal(t, 2*time.Millisecond, cfg.CalibrationInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 2*time.Second, cfg.SavedDwell)
	assert.Equal(t, 250*time.Millisecond, cfg.BlinkInterval)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.HasLED())
	assert.Empty(t, cfg.MQTTBroker)
}

func TestLoadFull(t *testing.T) {
	body := `
LOG_LEVEL=debug
STORAGE_DIR=/media/sd
STORAGE_FILE=run.csv
IMU_MOCK=true
IMU_ACCEL_RANGE=1
CALIBRATION_SAMPLES=500
CALIBRATION_INTERVAL=4
SAMPLE_INTERVAL=20
SAVED_DWELL=1000
LED_RED_PIN=GPIO12
LED_GREEN_PIN=GPIO11
LED_BLUE_PIN=GPIO13
BUZZER_PINS=GPIO21, GPIO10
DISPLAY_ENABLED=true
DISPLAY_I2C_BUS=1
MQTT_BROKER=tcp://localhost:1883
WEB_SERVER_PORT=8080
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "run.csv", cfg.StorageFile)
	assert.True(t, cfg.IMUMock)
	assert.Equal(t, byte(1), cfg.IMUAccelRange)
	assert.Equal(t, uint32(500), cfg.CalibrationSamples)
	assert.Equal(t, 4*time.Millisecond, cfg.CalibrationInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, time.Second, cfg.SavedDwell)
	assert.True(t, cfg.HasLED())
	assert.Equal(t, []string{"GPIO21", "GPIO10"}, cfg.BuzzerPins)
	assert.True(t, cfg.DisplayEnabled)
	assert.Equal(t, "1", cfg.DisplayI2CBus)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "datalogger/status", cfg.TopicStatus)
	assert.Equal(t, 8080, cfg.WebServerPort)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing storage", "IMU_MOCK=true\n", "STORAGE_DIR is required"},
		{"bad line", "STORAGE_DIR\n", "invalid config line 1"},
		{"unknown key", "STORAGE_DIR=/x\nFOO=1\n", "unknown config key"},
		{"accel range", "STORAGE_DIR=/x\nIMU_ACCEL_RANGE=4\n", "IMU_ACCEL_RANGE must be 0-3"},
		{"zero samples", "STORAGE_DIR=/x\nCALIBRATION_SAMPLES=0\n", "CALIBRATION_SAMPLES must be > 0"},
		{"negative interval", "STORAGE_DIR=/x\nSAMPLE_INTERVAL=-5\n", "SAMPLE_INTERVAL must be > 0"},
		{"bad bool", "STORAGE_DIR=/x\nIMU_MOCK=maybe\n", "invalid IMU_MOCK"},
		{"partial led", "STORAGE_DIR=/x\nLED_RED_PIN=GPIO12\n", "must be set together"},
		{"file with path", "STORAGE_DIR=/x\nSTORAGE_FILE=a/b.csv\n", "plain file name"},
		{"bad level", "STORAGE_DIR=/x\nLOG_LEVEL=loud\n", "invalid LOG_LEVEL"},
		{"bad port", "STORAGE_DIR=/x\nWEB_SERVER_PORT=70000\n", "WEB_SERVER_PORT must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitGlobalOnce(t *testing.T) {
	path := writeConfig(t, "STORAGE_DIR=/media/sd\n")
	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, "/media/sd", Get().StorageDir)

	// second call is a no-op
	require.NoError(t, InitGlobal(writeConfig(t, "STORAGE_DIR=/other\n")))
	assert.Equal(t, "/media/sd", Get().StorageDir)
}

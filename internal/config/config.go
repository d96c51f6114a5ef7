// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration values.
type Config struct {
	LogLevel log.Level

	// Storage
	StorageDir  string
	StorageFile string

	// IMU Hardware
	IMUMock      bool
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// Calibration
	CalibrationSamples  uint32
	CalibrationInterval time.Duration
	CalibrationSettle   time.Duration

	// Timing
	SampleInterval time.Duration
	SavedDwell     time.Duration
	BlinkInterval  time.Duration

	// Buttons, LED, buzzer (periph pin names)
	ButtonPrimaryPin   string
	ButtonSecondaryPin string
	LEDRedPin          string
	LEDGreenPin        string
	LEDBluePin         string
	BuzzerPins         []string

	// Display
	DisplayEnabled bool
	DisplayI2CBus  string

	// MQTT status mirror (disabled when MQTTBroker is empty)
	MQTTBroker   string
	MQTTClientID string
	TopicStatus  string

	// Web status page (disabled when 0)
	WebServerPort int
}

// Package-level singleton, same pattern as the other binaries: InitGlobal
// sets it once, Get reads it.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every policy value at its default and no
// optional hardware enabled.
func Default() *Config {
	return &Config{
		LogLevel:            log.InfoLevel,
		StorageFile:         "datalog.csv",
		IMUCSPin:            "GPIO8",
		IMUSPIDevice:        "/dev/spidev0.0",
		CalibrationSamples:  1000,
		CalibrationInterval: 2 * time.Millisecond,
		CalibrationSettle:   1500 * time.Millisecond,
		SampleInterval:      100 * time.Millisecond,
		SavedDwell:          2000 * time.Millisecond,
		BlinkInterval:       250 * time.Millisecond,
		ButtonPrimaryPin:    "GPIO5",
		ButtonSecondaryPin:  "GPIO6",
		MQTTClientID:        "motion-datalogger",
		TopicStatus:         "datalogger/status",
	}
}

// Load reads the configuration file and returns a Config struct. Keys not
// present keep their defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseMillis(key, value string) (time.Duration, error) {
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("%s must be > 0 ms, got %d", key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "LOG_LEVEL":
		c.LogLevel, err = log.ParseLevel(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
		}

	// Storage
	case "STORAGE_DIR":
		c.StorageDir = value
	case "STORAGE_FILE":
		c.StorageFile = value

	// IMU Hardware
	case "IMU_MOCK":
		c.IMUMock, err = parseBool(key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Calibration
	case "CALIBRATION_SAMPLES":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		if n == 0 {
			return fmt.Errorf("CALIBRATION_SAMPLES must be > 0")
		}
		c.CalibrationSamples = uint32(n)
	case "CALIBRATION_INTERVAL":
		c.CalibrationInterval, err = parseMillis(key, value)
	case "CALIBRATION_SETTLE":
		c.CalibrationSettle, err = parseMillis(key, value)

	// Timing
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseMillis(key, value)
	case "SAVED_DWELL":
		c.SavedDwell, err = parseMillis(key, value)
	case "BLINK_INTERVAL":
		c.BlinkInterval, err = parseMillis(key, value)

	// Buttons, LED, buzzer
	case "BUTTON_PRIMARY_PIN":
		c.ButtonPrimaryPin = value
	case "BUTTON_SECONDARY_PIN":
		c.ButtonSecondaryPin = value
	case "LED_RED_PIN":
		c.LEDRedPin = value
	case "LED_GREEN_PIN":
		c.LEDGreenPin = value
	case "LED_BLUE_PIN":
		c.LEDBluePin = value
	case "BUZZER_PINS":
		c.BuzzerPins = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.BuzzerPins = append(c.BuzzerPins, p)
			}
		}

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	if c.StorageFile == "" || strings.ContainsAny(c.StorageFile, `/\`) {
		return fmt.Errorf("STORAGE_FILE must be a plain file name, got %q", c.StorageFile)
	}
	if !c.IMUMock && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required unless IMU_MOCK=true")
	}
	if c.ButtonPrimaryPin == "" || c.ButtonSecondaryPin == "" {
		return fmt.Errorf("BUTTON_PRIMARY_PIN and BUTTON_SECONDARY_PIN are required")
	}
	leds := 0
	for _, p := range []string{c.LEDRedPin, c.LEDGreenPin, c.LEDBluePin} {
		if p != "" {
			leds++
		}
	}
	if leds != 0 && leds != 3 {
		return fmt.Errorf("LED_RED_PIN, LED_GREEN_PIN and LED_BLUE_PIN must be set together")
	}
	if c.MQTTBroker != "" && c.TopicStatus == "" {
		return fmt.Errorf("TOPIC_STATUS is required when MQTT_BROKER is set")
	}
	return nil
}

// HasLED reports whether an RGB LED is wired.
func (c *Config) HasLED() bool {
	return c.LEDRedPin != ""
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

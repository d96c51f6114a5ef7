// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_datalogger/internal/config"
	"github.com/relabs-tech/motion_datalogger/internal/status"
)

// RunStatusConsole follows the datalogger's retained status topic and prints
// every change until Ctrl+C.
func RunStatusConsole() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	if cfg.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is not set")
	}
	log.SetLevel(cfg.LogLevel)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatStatus(msg.Payload())
		if err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(line)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatStatus renders one status payload as a console line.
func formatStatus(payload []byte) (string, error) {
	var s status.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", err
	}
	line := fmt.Sprintf("[%s] %-7s %-14s", s.Time.Format(time.TimeOnly), s.Color, s.Headline)
	if s.Detail != "" {
		line += " " + s.Detail
	}
	return line, nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 250 * time.Millisecond

// Publisher is the subset of mqtt.Client used by MQTTMirror.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTMirror publishes each status change as a retained JSON Snapshot, so a
// console or dashboard on the same network can follow the device state.
type MQTTMirror struct {
	client Publisher
	topic  string
	snap   Snapshot
	now    func() time.Time
}

// ConnectMQTT connects to broker and returns a mirror publishing on topic.
func ConnectMQTT(broker, clientID, topic string) (*MQTTMirror, mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("status: connected to MQTT broker at %s", broker)
	return NewMQTTMirror(client, topic), client, nil
}

// NewMQTTMirror builds a mirror over an existing client.
func NewMQTTMirror(client Publisher, topic string) *MQTTMirror {
	return &MQTTMirror{client: client, topic: topic, snap: Snapshot{Color: Off.String()}, now: time.Now}
}

func (m *MQTTMirror) Show(headline, detail string) {
	if m.snap.Headline == headline && m.snap.Detail == detail {
		return
	}
	m.snap.Headline, m.snap.Detail = headline, detail
	m.publish()
}

func (m *MQTTMirror) SetColor(c Color) {
	if m.snap.Color == c.String() {
		return
	}
	m.snap.Color = c.String()
	m.publish()
}

func (m *MQTTMirror) publish() {
	m.snap.Time = m.now()
	payload, err := json.Marshal(m.snap)
	if err != nil {
		log.Printf("status: json marshal error: %v", err)
		return
	}
	token := m.client.Publish(m.topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("status: MQTT publish to %s timed out", m.topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("status: MQTT publish error (%s): %v", m.topic, err)
	}
}

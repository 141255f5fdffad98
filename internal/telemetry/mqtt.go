// Package telemetry publishes session and request events to an MQTT
// broker for external monitoring.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/config"
	"github.com/statrelay-project/statrelay/internal/events"
	"github.com/statrelay-project/statrelay/internal/util"
)

// MQTT topics
const (
	TopicAdmin    = "statrelay/admin"
	TopicSessions = "statrelay/sessions"
	TopicRequests = "statrelay/requests"
	TopicFaults   = "statrelay/faults"
)

// MQTTHandler manages the MQTT connection and publishes telemetry
// events from the bus.
type MQTTHandler struct {
	cfg    config.MQTTConfig
	bus    *events.Bus
	client mqtt.Client

	// Metadata included in every message
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler.
func NewMQTTHandler(cfg config.MQTTConfig, bus *events.Bus) (*MQTTHandler, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	sysInfo := util.GetSystemInfo()
	handler := &MQTTHandler{
		cfg: cfg,
		bus: bus,
		metadata: map[string]interface{}{
			"hostname":  sysInfo.Hostname,
			"os":        sysInfo.OS,
			"cpu_model": sysInfo.CPUModel,
		},
	}

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.BrokerURL, cfg.Port))

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("statrelay-%s", sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if cfg.UseTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	handler.client = mqtt.NewClient(opts)
	return handler, nil
}

// Start connects to the broker, subscribes to bus events, and blocks
// until ctx is cancelled.
func (h *MQTTHandler) Start(ctx context.Context) error {
	log.Info().
		Str("broker", h.cfg.BrokerURL).
		Int("port", h.cfg.Port).
		Msg("connecting to MQTT broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	h.subscribeEvents()

	<-ctx.Done()

	h.PublishShutdown()
	h.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")
	return nil
}

func (h *MQTTHandler) subscribeEvents() {
	h.bus.Subscribe(events.EventSessionCreated, "mqtt.sessionCreated", h.onSession("created"))
	h.bus.Subscribe(events.EventSessionExpired, "mqtt.sessionExpired", h.onSession("expired"))
	h.bus.Subscribe(events.EventRequestHandled, "mqtt.requestHandled", h.onRequestHandled)
	h.bus.Subscribe(events.EventRequestRejected, "mqtt.requestRejected", h.onRequestRejected)
}

// publish sends a JSON message to an MQTT topic with QoS 1.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	msg := make(map[string]interface{}, len(h.metadata)+2)
	for k, v := range h.metadata {
		msg[k] = v
	}
	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := h.client.Publish(topic, 1, false, data)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

func (h *MQTTHandler) onSession(event string) events.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		h.publish(TopicSessions, map[string]interface{}{
			"event":   event,
			"payload": e.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onRequestHandled(ctx context.Context, e events.Event) error {
	h.publish(TopicRequests, e.Payload)
	return nil
}

func (h *MQTTHandler) onRequestRejected(ctx context.Context, e events.Event) error {
	h.publish(TopicFaults, e.Payload)
	return nil
}

// PublishShutdown sends a shutdown message to the broker.
func (h *MQTTHandler) PublishShutdown() {
	h.publish(TopicAdmin, map[string]interface{}{
		"event":     "shutdown",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

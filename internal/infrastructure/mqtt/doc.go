// Package mqtt provides the MQTT transport for Iris Core.
//
// It wraps eclipse/paho.mqtt.golang with connection lifecycle
// management, automatic re-subscription after reconnect, a retained
// Last Will on iris/system/status, and panic-safe message handlers.
//
// Topic layout lives in topics.go under the "iris" namespace:
//
//	iris/sensors/<device>/event   sensor interrupts from IoT devices
//	iris/voice/transcript         recognized voice transcripts
//	iris/system/status            core online/offline status (retained)
//	iris/system/session           current session screen (retained)
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.AllSensorEvents(), 1, bridge.HandleMessage)
package mqtt

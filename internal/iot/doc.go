// Package iot reaches actuator devices over their plain HTTP command
// endpoints. Addresses come from the device registry at call time;
// health and capability are checked before any network traffic.
package iot

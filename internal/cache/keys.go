package cache

import "fmt"

// ClientKey is the Redis key holding one persisted value of a client namespace.
func ClientKey(clientID, key string) string {
	return fmt.Sprintf("client:%s:%s", clientID, key)
}

// ToastChannel is the pub/sub channel carrying toasts for one client.
func ToastChannel(clientID string) string {
	return "toasts:client:" + clientID
}

// ToastChannelPattern matches every client toast channel.
const ToastChannelPattern = "toasts:client:*"

package utils

import (
	"net/http"
	"time"
)

// WebhookClient is the shared client for outbound callback deliveries.
// Deliveries are best-effort, so the timeout is short.
var WebhookClient = &http.Client{
	Timeout: 5 * time.Second,
}

package internal

import (
	"context"
)

// SessionGate decides whether the visitor is logged in to the proxy.
type SessionGate struct {
	proxy    *ProxyClient
	appName  string
	pingPath string
}

func NewSessionGate(proxy *ProxyClient, svc ServicesConfig) *SessionGate {
	return &SessionGate{proxy: proxy, appName: svc.SeriesApp, pingPath: svc.PingPath}
}

type pingPayload struct {
	Status string `json:"status"`
}

// HasAuth never fails: any transport, parse or envelope problem is logged
// and reported as not logged in.
func (g *SessionGate) HasAuth(ctx context.Context) bool {
	raw, err := g.proxy.FetchEnvelope(ctx, g.appName, g.pingPath, "")
	if err != nil {
		DashLog(INFO, "SessionGate", "auth probe failed: %v", err)
		SessionProbes.WithLabelValues("error").Inc()
		return false
	}
	res, err := DecodePayload[pingPayload](raw)
	if err != nil {
		DashLog(INFO, "SessionGate", "auth probe payload: %v", err)
		SessionProbes.WithLabelValues("error").Inc()
		return false
	}
	if res.Payload.Status != "OK" {
		DashLog(INFO, "SessionGate", "auth probe status %q", res.Payload.Status)
		SessionProbes.WithLabelValues("denied").Inc()
		return false
	}
	SessionProbes.WithLabelValues("ok").Inc()
	return true
}

package internal

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

type proxySettingsRequest struct {
	BaseURL string `json:"baseUrl" binding:"required,url"`
	Debug   bool   `json:"debug"`
	Timeout string `json:"timeout"`
}

func GetProxySettingsHandler(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := d.Proxy.Settings()
		respondJSON(c, http.StatusOK, gin.H{
			"baseUrl":   s.BaseURL,
			"debug":     s.Debug,
			"timeout":   s.Timeout.String(),
			"hasCookie": s.Cookie != "",
		})
	}
}

// SaveProxySettingsHandler applies new proxy settings to the running client
// and, when configPath is set, writes them to the proxy section of the file.
// The endpoint may only move within its configured host; the static cookie
// is managed in the config file alone.
func SaveProxySettingsHandler(d *Dashboard, configPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req proxySettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, ErrInvalidRequest)
			return
		}
		if err := d.Proxy.CheckBaseURL(req.BaseURL); err != nil {
			DashLog(WARN, "Settings", "Rejected proxy endpoint %s: %v", req.BaseURL, err)
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		next := d.Proxy.Settings()
		next.BaseURL = req.BaseURL
		next.Debug = req.Debug
		if req.Timeout != "" {
			t, err := time.ParseDuration(req.Timeout)
			if err != nil || t <= 0 {
				respondError(c, http.StatusBadRequest, "invalid timeout")
				return
			}
			next.Timeout = t
		}
		if configPath != "" {
			if err := CheckErrLog(ERROR, "Settings", "Failed to save config", saveProxySection(configPath, next)); err != nil {
				respondError(c, http.StatusInternalServerError, err.Error())
				return
			}
		}
		d.Proxy.UpdateSettings(next)
		DashLog(INFO, "Settings", "Proxy settings updated: %s", next.BaseURL)
		respondJSON(c, http.StatusOK, gin.H{"status": "saved"})
	}
}

// saveProxySection rewrites only the proxy section, keeping every other
// key of the file as it was.
func saveProxySection(path string, s ProxyConfig) error {
	config := map[string]interface{}{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		if config == nil {
			config = map[string]interface{}{}
		}
	}
	config["proxy"] = map[string]interface{}{
		"base_url": s.BaseURL,
		"debug":    s.Debug,
		"timeout":  s.Timeout.String(),
		"cookie":   s.Cookie,
	}
	out, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

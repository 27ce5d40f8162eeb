package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"port":            "8080",
			"mode":            "debug",
			"trusted_proxies": []string{"127.0.0.1"},
			"allowed_origins": []string{"http://localhost:3000"},
		},
		"database": map[string]interface{}{
			"driver":      DriverPostgres,
			"url":         "",
			"host":        "localhost",
			"port":        "5432",
			"user":        "",
			"password":    "",
			"name":        "pharmacist",
			"ssl_mode":    "disable", // Default to disable for local development
			"max_retries": 5,
			"retry_delay": "5s",
			"log_sql":     true,
		},
		"auth": map[string]interface{}{
			"jwt_secret":  "",
			"issuer":      "pharmacist",
			"access_ttl":  "1h",
			"refresh_ttl": "168h",
		},
		"google": map[string]interface{}{
			"client_id":     "",
			"client_secret": "",
			"redirect_url":  "",
		},
		"frontend": map[string]interface{}{
			"url": "http://localhost:3000",
		},
		"reminder": map[string]interface{}{
			"timezone":             "Asia/Tehran",
			"default_days":         7,
			"max_days":             30,
			"generate_window_days": 7,
			"worker_interval":      "1m",
			"snooze_minutes":       15,
			"stale_after":          "2h",
		},
		"push": map[string]interface{}{
			"vapid_public_key":  "",
			"vapid_private_key": "",
			"subscriber":        "support@clickpharma.ir",
			"ttl":               3600,
			"icon":              "/static/images/notification-icon.png",
			"badge":             "/static/images/notification-badge.png",
		},
		"email": map[string]interface{}{
			"sendgrid_api_key": "",
			"from_email":       "",
			"from_name":        "فارماکلیک",
		},
		"cloudinary": map[string]interface{}{
			"cloud_name": "",
			"api_key":    "",
			"api_secret": "",
			"folder":     "pharmacist/chat",
		},
		"assistant": map[string]interface{}{
			"provider":      ProviderDeepSeek,
			"api_key":       "",
			"model":         "deepseek-chat",
			"max_tokens":    2048,
			"temperature":   0.7,
			"history_limit": 20,
			"system_prompt": "شما یک دستیار داروساز هستید. به زبان فارسی، دقیق و کوتاه پاسخ دهید. " +
				"در موارد اورژانسی یا تداخل‌های جدی دارویی، کاربر را به پزشک یا داروساز ارجاع دهید.",
		},
		"maps": map[string]interface{}{
			"api_key": "",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

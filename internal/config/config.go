package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	MaxPayloadBytes int64
	EmptyRoomTTL    time.Duration
	SendBuffer      int
	HTTPRate        float64
	HTTPBurst       int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getfloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

// getduration 支持 "5m" 这类写法，纯数字按秒解释。
func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if !strings.ContainsAny(v, "smh") {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}

// Load 从 .env 与环境变量加载配置，缺省值适用于本地开发。
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getenv("APP_PORT", "8080"),
		Env:             getenv("APP_ENV", "dev"),
		MaxPayloadBytes: int64(getint("MAX_PAYLOAD_BYTES", 100*1024)),
		EmptyRoomTTL:    getduration("EMPTY_ROOM_TTL", 5*time.Minute),
		SendBuffer:      getint("WS_SEND_BUFFER", 256),
		HTTPRate:        getfloat("HTTP_RATE", 20),
		HTTPBurst:       getint("HTTP_BURST", 40),
	}
}

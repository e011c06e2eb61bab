package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCallejeroURL   = "https://ovc.catastro.meh.es/OVCServWeb/OVCWcfCallejero/COVCCallejero.svc/json"
	DefaultCoordenadasURL = "https://ovc.catastro.meh.es/OVCServWeb/OVCWcfCallejero/COVCCoordenadas.svc/json"
	DefaultWFSURL         = "https://ovc.catastro.meh.es/INSPIRE/wfsCP.aspx"
)

type CatastroCfg struct {
	CallejeroURL   string
	CoordenadasURL string
	WFSURL         string
	Timeout        time.Duration
	UserAgent      string
}

type ExportCfg struct {
	Sink        string // file | redis
	Root        string
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration
	KafkaBroker []string
	KafkaTopic  string
}

type Config struct {
	Transport   string // stdio | http
	Addr        string
	MetricsAddr string
	LogLevel    string
	LogConsole  bool
	LogSampleN  int
	ToolTimeout time.Duration

	// Reprojection selects the coordinate transform port: builtin | off.
	Reprojection string
	// H3Res adds an h3_cell property to GeoJSON output; negative disables.
	H3Res int

	Catastro CatastroCfg
	Export   ExportCfg
}

func FromEnv() Config {
	h3res := getint("H3_RES", -1)
	if h3res > 15 {
		h3res = 15
	}

	return Config{
		Transport:    strings.ToLower(getenv("TRANSPORT", "stdio")),
		Addr:         getenv("ADDR", ":8090"),
		MetricsAddr:  getenv("METRICS_ADDR", ""),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogConsole:   getbool("LOG_CONSOLE", false),
		LogSampleN:   getint("LOG_SAMPLE_N", 0),
		ToolTimeout:  getduration("TOOL_TIMEOUT", 60*time.Second),
		Reprojection: strings.ToLower(getenv("REPROJECTION", "builtin")),
		H3Res:        h3res,
		Catastro: CatastroCfg{
			CallejeroURL:   getenv("CATASTRO_CALLEJERO_URL", DefaultCallejeroURL),
			CoordenadasURL: getenv("CATASTRO_COORDENADAS_URL", DefaultCoordenadasURL),
			WFSURL:         getenv("CATASTRO_WFS_URL", DefaultWFSURL),
			Timeout:        getduration("CATASTRO_TIMEOUT", 20*time.Second),
			UserAgent:      getenv("CATASTRO_USER_AGENT", "mcp-catastro/0.1"),
		},
		Export: ExportCfg{
			Sink:        strings.ToLower(getenv("EXPORT_SINK", "file")),
			Root:        getenv("EXPORT_ROOT", "./exports"),
			RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
			RedisPrefix: getenv("EXPORT_REDIS_PREFIX", "catastro:export:"),
			RedisTTL:    getduration("EXPORT_REDIS_TTL", 24*time.Hour),
			KafkaBroker: getlist("KAFKA_BROKERS"),
			KafkaTopic:  getenv("KAFKA_TOPIC", "catastro-exports"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// comma separated, empty entries dropped
func getlist(k string) []string {
	var out []string
	for p := range strings.SplitSeq(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	AnalysisEvery time.Duration
	Debug         bool
}

// ParseFlags builds the configuration from command line flags, with a .env
// overlay for blanks (flags win).
func ParseFlags() (cfg Config, err error) {
	// missing .env is fine, env vars may come from the environment proper
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "voxpop.sqlite", "path to SQLite3 DB file (default voxpop.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds (default 120)")
	flag.StringVar(&cfg.OpenAIKey, "openai-key", "", "API key for the analysis provider")
	flag.StringVar(&cfg.OpenAIBaseURL, "openai-url", "", "base URL for an OpenAI-compatible analysis provider")
	flag.StringVar(&cfg.OpenAIModel, "openai-model", "gpt-4o-mini", "model used for sentiment analysis and summaries")
	var every uint
	flag.UintVar(&every, "analysis-every", 0, "run the analysis job every N minutes (0 disables the schedule)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.AnalysisEvery = time.Duration(every) * time.Minute

	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("VOXPOP_TOKEN_SECRET")
	}
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

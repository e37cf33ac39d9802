package utils

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Addr              string
	DefaultSampleSize int
	SampleSeed        int64 // 0 means time-seeded
}

// LoadServerConfig reads configuration from the environment, after
// loading a .env file when one is present.
func LoadServerConfig() ServerConfig {
	_ = godotenv.Load()

	addr := os.Getenv("IMAGINATION_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	size := 400
	if s := os.Getenv("IMAGINATION_SAMPLE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			size = n
		}
	}

	var seed int64
	if s := os.Getenv("IMAGINATION_SEED"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			seed = n
		}
	}

	return ServerConfig{
		Addr:              addr,
		DefaultSampleSize: size,
		SampleSeed:        seed,
	}
}

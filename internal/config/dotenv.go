package config

import (
	"os"

	"github.com/joho/godotenv"
)

// dotEnvCandidates env 파일 우선순위: .env.<APP_ENV>.local > .env.local > .env.<APP_ENV> > .env
func dotEnvCandidates(appEnv string) []string {
	if appEnv == "" {
		return []string{".env.local", ".env"}
	}
	return []string{".env." + appEnv + ".local", ".env.local", ".env." + appEnv, ".env"}
}

// LoadDotEnv loads the existing candidates for APP_ENV and returns their names.
// godotenv never overwrites a set variable, so the OS environment wins and
// earlier files win over later ones (DB_*, REDIS_*, JWT_SECRET, CACHE_BACKEND ...).
func LoadDotEnv() []string {
	var loaded []string
	for _, f := range dotEnvCandidates(os.Getenv("APP_ENV")) {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

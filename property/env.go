package property

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env returns a Source over the current process environment. When prefix is
// not empty only variables starting with it are visible, and the prefix is
// stripped before the name is turned into a path:
//
//	APP_SERVER_PORT with prefix "APP_" -> server.port
func Env(prefix string) Map {
	return fromEnviron(os.Environ(), prefix)
}

// LoadEnv parses dotenv files with godotenv and returns their variables as a
// Source. The process environment is left untouched. With no arguments it
// reads ".env".
func LoadEnv(files ...string) (Map, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("reading env files %v: %w", files, err)
	}
	m := make(Map, len(vars))
	for k, v := range vars {
		m[Normalize(k)] = v
	}
	return m, nil
}

func fromEnviron(environ []string, prefix string) Map {
	m := make(Map, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			k = strings.TrimPrefix(k, prefix)
		}
		m[Normalize(k)] = v
	}
	return m
}

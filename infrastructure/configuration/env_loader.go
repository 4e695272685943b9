package configuration

import (
	"bufio"
	"os"
	"strings"
)

// LoadEnvFromFile reads KEY=VALUE pairs from the given files (e.g. config.env,
// .env) into the process environment. Missing files are skipped, comments and
// blank lines are ignored, and variables already set in the environment win.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			applyEnvLine(sc.Text())
		}
		_ = f.Close()
	}
}

func applyEnvLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	line = strings.TrimPrefix(line, "export ")
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	val = strings.Trim(strings.TrimSpace(val), "\"'")
	if key == "" {
		return
	}
	if _, exists := os.LookupEnv(key); !exists {
		_ = os.Setenv(key, val)
	}
}

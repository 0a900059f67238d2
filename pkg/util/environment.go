package util

import (
	"fmt"
	"os"
	"strings"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

type MissingEnvironmentKey string

func (k MissingEnvironmentKey) Error() string {
	return fmt.Sprintf("%s environment variable not set", string(k))
}

// GetEnvironmentSecret reads a secret either directly from key or from the file named by key_FILE
func GetEnvironmentSecret(env map[string]string, key string) (string, error) {
	value := env[key]
	path := env[key+"_FILE"]

	if value == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		value = string(content)
	}

	if value == "" {
		return "", MissingEnvironmentKey(key)
	}

	return strings.TrimSpace(value), nil
}

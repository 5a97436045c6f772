// Package helpers holds small environment utilities used by the connector
// defaults.
package helpers

import "os"

// GetEnv returns the value of an environment variable, or defaultValue when
// it is unset. An empty value counts as set.
func GetEnv(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

// Package repository implémente le stockage ScyllaDB des ports de internal/services.
package repository

import (
	"encoding/json"
	"errors"

	"github.com/gocql/gocql"
)

// notFound remplace gocql.ErrNotFound par l'erreur métier fournie
func notFound(err error, replacement error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return replacement
	}
	return err
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fromJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

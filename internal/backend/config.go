package backend

import (
	"errors"
	"fmt"
	"strings"

	"spendlog/internal/config"
)

// FromAppConfig picks the store settings and the optional change-event
// settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend)))
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid DATA_BACKEND %q (want one of %s)",
			appConfig.DataBackend, backendList())
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		SupabaseURL:   appConfig.SupabaseURL,
		SupabaseKey:   appConfig.SupabaseKey,
		SupabaseTable: appConfig.SupabaseTable,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate reports every missing setting for the selected store, plus the
// exchange and queue names when change events are enabled.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q (want one of %s)", c.Type, backendList())
	}

	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend needs SQLITE_DB_PATH"))
		}
	case SupabaseBackend:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("supabase backend needs SUPABASE_URL"))
		}
		if c.SupabaseKey == "" {
			errs = append(errs, errors.New("supabase backend needs SUPABASE_KEY"))
		}
	}
	if c.EventsEnabled() && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("change events need AMQP_EXCHANGE and AMQP_QUEUE"))
	}
	return errors.Join(errs...)
}

// EventsEnabled reports whether writes publish change events.
func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SupabaseBackend}
}

func backendList() string {
	names := make([]string, 0, 3)
	for _, t := range GetBackendTypes() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

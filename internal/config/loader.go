package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies tag defaults
// and validates the result. Every malformed variable is reported, not just
// the first.
func Load() (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, f := range envFields(reflect.ValueOf(cfg).Elem()) {
		if err := f.load(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envField is one settable field bound to an environment variable.
type envField struct {
	name     string
	alt      string
	def      string
	required bool
	dst      reflect.Value
}

// envFields walks v depth-first and returns every field carrying an env tag.
func envFields(v reflect.Value) []envField {
	var out []envField
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			out = append(out, envFields(fv)...)
			continue
		}
		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		out = append(out, envField{
			name:     name,
			alt:      sf.Tag.Get("envAlt"),
			def:      sf.Tag.Get("default"),
			required: sf.Tag.Get("required") == "true",
			dst:      fv,
		})
	}
	return out
}

// raw returns the variable's value, the alternate's, or the default.
func (f envField) raw() (string, error) {
	if v := os.Getenv(f.name); v != "" {
		return v, nil
	}
	if f.alt != "" {
		if v := os.Getenv(f.alt); v != "" {
			return v, nil
		}
	}
	if f.required {
		return "", fmt.Errorf("required environment variable %s is not set", f.name)
	}
	return f.def, nil
}

func (f envField) load() error {
	value, err := f.raw()
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	if err := decode(f.dst, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", f.name, value, err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// decode parses value into dst. Durations use time.ParseDuration and int64
// fields are byte sizes.
func decode(dst reflect.Value, value string) error {
	if dst.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		dst.SetInt(int64(n))
	case reflect.Int64:
		n, err := parseSize(value)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		dst.SetBool(b)
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", dst.Type().Elem().Kind())
		}
		dst.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported field type: %s", dst.Kind())
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sizeUnits are the suffixes accepted by parseSize, longest first.
var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// parseSize reads a byte count with an optional KB, MB or GB suffix.
func parseSize(value string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %w", err)
	}
	return n * mult, nil
}

// Package graphdebug exposes process-wide debug/config flags parsed from
// the DEPGRAPH_DEBUG environment variable, modeled directly on
// cuelang.org/go/internal/cuedebug's Flags type layered over
// cuelang.org/go/internal/envflag's struct-tag-driven parser.
package graphdebug

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Flags holds the debug/config toggles package query's Engine consults
// for diagnostic behavior. Each field's `envflag:"default:..."` tag gives
// the value used when the flag is absent from DEPGRAPH_DEBUG.
type Flags struct {
	// Strict enables an additional runtime invariant check: when
	// IntroducesCycle resolves a cached Path's node sequence, each edge's
	// declaring node is verified to chain from its predecessor's target,
	// at the cost of extra store round-trips.
	Strict bool `envflag:"default:false"`
	// LogSelection logs each RegisterViewSelection pin at Info level.
	LogSelection bool `envflag:"default:false"`
	// LogTraversal logs, at Debug level, a view's node and edge counts
	// once RegisterView has materialized it, and each view AddRelationships
	// has checked for re-materialization.
	LogTraversal bool `envflag:"default:false"`
}

// Init parses the DEPGRAPH_DEBUG environment variable into a Flags,
// applying each field's envflag default for any key not present.
func Init() (Flags, error) {
	var f Flags
	if err := Parse(os.Getenv("DEPGRAPH_DEBUG"), &f); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// Parse populates dst (a pointer to a struct of bool/int/string fields
// tagged `envflag:"default:..."`) from s, a comma-separated list of
// key=value (or bare key, for booleans) pairs, the same grammar
// cuelang.org/go/internal/envflag.Init parses for CUE_DEBUG.
func Parse(s string, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("graphdebug: Parse requires a pointer to a struct")
	}
	v = v.Elem()
	t := v.Type()

	defaults := map[string]string{}
	fields := map[string]reflect.Value{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("envflag")
		name := strings.ToLower(field.Name)
		def := ""
		for _, part := range strings.Split(tag, ",") {
			if d, ok := strings.CutPrefix(part, "default:"); ok {
				def = d
			}
		}
		defaults[name] = def
		fields[name] = v.Field(i)
	}

	for name, def := range defaults {
		if err := setField(fields[name], def); err != nil {
			return fmt.Errorf("graphdebug: default for %s: %w", name, err)
		}
	}

	if s == "" {
		return nil
	}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, val, hasVal := strings.Cut(entry, "=")
		key = strings.ToLower(key)
		field, ok := fields[key]
		if !ok {
			return fmt.Errorf("graphdebug: unknown flag %q", key)
		}
		if !hasVal {
			val = "true"
		}
		if err := setField(field, val); err != nil {
			return fmt.Errorf("graphdebug: flag %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, val string) error {
	switch field.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.String:
		field.SetString(val)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Factory creates a Store from a config map.
type Factory func(context.Context, map[string]interface{}) (Store, error)

var registry = make(map[string]Factory)

// Register makes a store type available to Create under the given key.
// It is normally called from a store package's init function.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create produces a Store of the registered type `key`.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// CreateNested creates the store described by the "nested" parameter of conf.
// Decorator stores use it to build the store they wrap.
func CreateNested(ctx context.Context, conf map[string]interface{}) (Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrap(err, "creating nested store")
}

// FromConfig reads a JSON config file
// and creates the store it describes.
// The file must be an object with a "type" field naming a registered store type;
// the remaining fields are handed to that type's Factory.
func FromConfig(ctx context.Context, filename string) (Store, error) {
	var conf map[string]interface{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf("config file %s missing `type` parameter", filename)
	}

	return Create(ctx, typ, conf)
}

// IntParam reads an integer parameter from a config map.
// Config files are decoded with UseNumber,
// but maps built in code may hold plain ints.
func IntParam(conf map[string]interface{}, key string) (int, bool, error) {
	switch v := conf[key].(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case float64:
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, errors.Wrapf(err, "parsing %q parameter", key)
		}
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("%q parameter has type %T, want a number", key, v)
	}
}

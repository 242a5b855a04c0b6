// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Codec renders a settings tree in one file format.
type Codec interface {
	Encode(settings map[string]any) ([]byte, error)
	Ext() string
}

// New returns the codec for format ("yaml", "yml", "toml" or "json").
func New(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		return yamlCodec{}, nil
	case "toml":
		return tomlCodec{}, nil
	case "json":
		return jsonCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

type yamlCodec struct{}

func (yamlCodec) Encode(settings map[string]any) ([]byte, error) {
	return yaml.Marshal(settings)
}

func (yamlCodec) Ext() string { return "yaml" }

type tomlCodec struct{}

func (tomlCodec) Encode(settings map[string]any) ([]byte, error) {
	return toml.Marshal(settings)
}

func (tomlCodec) Ext() string { return "toml" }

type jsonCodec struct{}

func (jsonCodec) Encode(settings map[string]any) ([]byte, error) {
	return json.MarshalIndent(settings, "", "  ")
}

func (jsonCodec) Ext() string { return "json" }

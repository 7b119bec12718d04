// Copyright The GridSolve Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memmgr

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Config is the external configuration of a manager: the memory types
// selecting the backend triple, and whether allocation is pooled.
// Unknown or incompatible combinations are rejected when the manager is
// constructed, not on individual calls.
type Config struct {
	// Host selects the host memory type ("host", "host-32", "host-64",
	// "guarded", "unified"). Defaults to "host".
	Host string `json:"host,omitempty"`
	// Device selects the device memory type ("device", "unified",
	// "none"). Defaults to "device".
	Device string `json:"device,omitempty"`
	// Pooled enables pooled allocation in front of both spaces.
	Pooled bool `json:"pooled,omitempty"`
}

// ReadConfig reads and parses a YAML configuration file.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration %q", path)
	}

	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration %q", path)
	}
	return cfg, nil
}

// apply resolves the configuration onto manager options.
func (c *Config) apply(o *options) error {
	if c.Host != "" {
		t, err := ParseType(c.Host)
		if err != nil {
			return errors.Wrap(err, "invalid host memory type")
		}
		if err := WithHostType(t)(o); err != nil {
			return err
		}
	}
	if c.Device != "" {
		t, err := ParseType(c.Device)
		if err != nil {
			return errors.Wrap(err, "invalid device memory type")
		}
		if err := WithDeviceType(t)(o); err != nil {
			return err
		}
	}
	o.pooled = c.Pooled
	return nil
}

// String returns a single-line representation of the configuration.
func (c *Config) String() string {
	host, device := c.Host, c.Device
	if host == "" {
		host = TypeHost.String()
	}
	if device == "" {
		device = TypeDevice.String()
	}
	str := "host=" + host + ",device=" + device
	if c.Pooled {
		str += ",pooled"
	}
	return str
}

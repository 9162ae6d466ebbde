package keyring

import (
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// channelFile is the on-disk layout of an extra channel list:
//
//	channels:
//	  - name: Hiking
//	    psk: AQ==
type channelFile struct {
	Channels []struct {
		Name  string `yaml:"name"`
		PSK   string `yaml:"psk"`
		Label string `yaml:"label"`
	} `yaml:"channels"`
}

// LoadChannels reads a YAML channel list. PSKs are base64, as they appear
// in channel URLs and the device configuration.
func LoadChannels(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel file %s: %w", path, err)
	}

	var f channelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse channel file %s: %w", path, err)
	}

	channels := make([]Channel, 0, len(f.Channels))
	for i, c := range f.Channels {
		if c.Name == "" {
			return nil, fmt.Errorf("channel file %s: entry %d has no name", path, i)
		}
		psk, err := base64.StdEncoding.DecodeString(c.PSK)
		if err != nil {
			return nil, fmt.Errorf("channel file %s: channel %q: invalid psk: %w", path, c.Name, err)
		}
		channels = append(channels, Channel{Label: c.Label, Name: c.Name, PSK: psk})
	}
	return channels, nil
}

package daemon

import (
	"fmt"

	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/keyring"
)

// BuildKeyring assembles the trial key ring: the built-in channels, then
// channels from the channel file, then channels listed in the
// configuration.
func BuildKeyring(cfg config.KeyringConfig) (*keyring.Ring, error) {
	channels := keyring.DefaultChannels()

	if cfg.ChannelsFile != "" {
		extra, err := keyring.LoadChannels(cfg.ChannelsFile)
		if err != nil {
			return nil, err
		}
		channels = append(channels, extra...)
	}
	for _, ch := range cfg.Channels {
		psk, err := ch.Key()
		if err != nil {
			return nil, err
		}
		channels = append(channels, keyring.Channel{Name: ch.Name, PSK: psk})
	}

	var opts []keyring.Option
	if !cfg.Variants {
		opts = append(opts, keyring.WithoutVariants())
	}
	ring, err := keyring.New(channels, opts...)
	if err != nil {
		return nil, fmt.Errorf("key ring: %w", err)
	}
	return ring, nil
}

// Package keyring holds the candidate pre-shared keys tried against
// encrypted packets and computes channel hashes.
//
// The ring is built once at startup and is read-only afterwards, so it is
// safe to share between decrypt workers.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sync"
)

// DefaultPSK is the well-known key of the default channel.
var DefaultPSK = []byte{
	0xd4, 0xf1, 0xbb, 0x3a, 0x20, 0x29, 0x07, 0x59,
	0xf0, 0xbc, 0xff, 0xab, 0xcf, 0x4e, 0x69, 0x01,
}

// ModemPresets are the channel names firmware uses when a channel is left
// unnamed. All of them share DefaultPSK.
var ModemPresets = []string{
	"LongFast", "LongSlow", "LongModerate",
	"MediumFast", "MediumSlow",
	"ShortFast", "ShortSlow", "ShortTurbo",
	"VeryLongSlow",
}

var (
	nodeChatPSK = []byte{
		0x4e, 0x22, 0x1d, 0x8b, 0xc3, 0x09, 0x1b, 0xe2, 0x11, 0x9c, 0x89, 0x12,
		0xf2, 0x25, 0x19, 0x5d, 0x15, 0x3e, 0x30, 0x7b, 0x86, 0xb6, 0xec, 0xc4,
		0x6a, 0xc3, 0x96, 0x5e, 0x9e, 0x10, 0x9d, 0xd5,
	}
	yardSalePSK = []byte{
		0x15, 0x6f, 0xfe, 0x46, 0xd4, 0x56, 0x63, 0x8a, 0x54, 0x43, 0x13, 0xf2,
		0xef, 0x6c, 0x63, 0x89, 0xf0, 0x06, 0x30, 0x52, 0xce, 0x36, 0x5e, 0xb1,
		0xe8, 0xbb, 0x86, 0xe6, 0x26, 0x5b, 0x1d, 0x58,
	}
	eventPSK = []byte{
		0x38, 0x4b, 0xbc, 0xc0, 0x1d, 0xc0, 0x22, 0xd1, 0x81, 0xbf, 0x36,
		0xb8, 0x61, 0x21, 0xe1, 0xfb, 0x96, 0xb7, 0x2e, 0x55, 0xbf, 0x74,
		0x22, 0x7e, 0x9d, 0x6a, 0xfb, 0x48, 0xd6, 0x4c, 0xb1, 0xa1,
	}
)

// Channel is a named channel and its PSK as configured.
type Channel struct {
	Label string // optional display label
	Name  string
	PSK   []byte
}

// DefaultChannels returns the built-in named channels in trial order.
func DefaultChannels() []Channel {
	channels := make([]Channel, 0, len(ModemPresets)+3)
	for _, preset := range ModemPresets {
		channels = append(channels, Channel{
			Label: fmt.Sprintf("Default PSK (%s)", preset),
			Name:  preset,
			PSK:   DefaultPSK,
		})
	}
	return append(channels,
		Channel{Label: "Channel 1 (NodeChat)", Name: "NodeChat", PSK: nodeChatPSK},
		Channel{Label: "Channel 2 (YardSale)", Name: "YardSale", PSK: yardSalePSK},
		Channel{Label: "Event PSK (DEFCONnect)", Name: "DEFCONnect", PSK: eventPSK},
	)
}

// Key is one trial candidate.
type Key struct {
	Label   string
	Channel string // empty for generated variants
	PSK     []byte // 16 or 32 bytes; empty means no encryption
	Hash    uint8
	Named   bool

	block cipher.Block
}

// Block returns the AES block cipher for the key, or nil for an empty key.
func (k *Key) Block() cipher.Block { return k.block }

func newKey(label, channel string, psk []byte, named bool) (*Key, error) {
	k := &Key{
		Label:   label,
		Channel: channel,
		PSK:     psk,
		Hash:    ChannelHash(channel, psk),
		Named:   named,
	}
	if len(psk) == 0 {
		return k, nil
	}
	block, err := aes.NewCipher(psk)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", label, err)
	}
	k.block = block
	return k, nil
}

// Ring is the ordered candidate set.
type Ring struct {
	named      []*Key
	variants   []*Key
	noVariants bool

	mu      sync.Mutex
	derived map[uint8][]*Key
	lists   [256]candidateList
}

type candidateList struct {
	once sync.Once
	keys []*Key
}

// Option configures a Ring.
type Option func(*Ring)

// WithoutVariants disables the 256 single-byte variants of DefaultPSK.
func WithoutVariants() Option {
	return func(r *Ring) { r.noVariants = true }
}

// New builds a ring from the given named channels followed by the
// generated variants of DefaultPSK. Channel PSKs go through ExpandPSK.
func New(channels []Channel, opts ...Option) (*Ring, error) {
	r := &Ring{derived: make(map[uint8][]*Key)}
	for _, opt := range opts {
		opt(r)
	}

	for _, ch := range channels {
		psk, err := ExpandPSK(ch.PSK)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		label := ch.Label
		if label == "" {
			label = fmt.Sprintf("Channel %s", ch.Name)
		}
		k, err := newKey(label, ch.Name, psk, true)
		if err != nil {
			return nil, err
		}
		r.named = append(r.named, k)
	}

	if r.noVariants {
		return r, nil
	}
	r.variants = make([]*Key, 0, 256)
	for v := 0; v < 256; v++ {
		psk := append([]byte(nil), DefaultPSK...)
		psk[len(psk)-1] = byte(v)
		k, err := newKey(fmt.Sprintf("PSK variant (index %d)", v), "", psk, false)
		if err != nil {
			return nil, err
		}
		r.variants = append(r.variants, k)
	}
	return r, nil
}

// Default returns a ring with the built-in channels and all variants.
func Default() *Ring {
	r, err := New(DefaultChannels())
	if err != nil {
		// built-in keys are fixed and valid
		panic(err)
	}
	return r
}

// Named returns the named keys in trial order.
func (r *Ring) Named() []*Key { return r.named }

// Variants returns the generated variants in trial order.
func (r *Ring) Variants() []*Key { return r.variants }

// Candidates returns the keys to try for a packet carrying the given
// channel hash, in order: named channels whose hash matches, the variants
// in ascending order, every other named channel, then variants derived from
// the named non-default keys and the hash. Each distinct key appears once
// and empty keys are never returned. The result is shared and must not be
// modified.
func (r *Ring) Candidates(hash uint8) []*Key {
	l := &r.lists[hash]
	l.once.Do(func() {
		l.keys = r.buildCandidates(hash)
	})
	return l.keys
}

func (r *Ring) buildCandidates(hash uint8) []*Key {
	seen := make(map[string]bool)
	var out []*Key
	add := func(k *Key) {
		if len(k.PSK) == 0 || seen[string(k.PSK)] {
			return
		}
		seen[string(k.PSK)] = true
		out = append(out, k)
	}

	for _, k := range r.named {
		if k.Hash == hash {
			add(k)
		}
	}
	for _, k := range r.variants {
		add(k)
	}
	for _, k := range r.named {
		add(k)
	}
	for _, k := range r.hashDerived(hash) {
		add(k)
	}
	return out
}

// hashDerived builds keys whose last byte is offset by the channel hash,
// for each named key that is not a DefaultPSK variant.
func (r *Ring) hashDerived(hash uint8) []*Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keys, ok := r.derived[hash]; ok {
		return keys
	}

	var keys []*Key
	for _, base := range r.named {
		if len(base.PSK) == 0 || isDefaultVariant(base.PSK) {
			continue
		}
		psk := append([]byte(nil), base.PSK...)
		psk[len(psk)-1] += hash
		label := fmt.Sprintf("Hash-based variant of %s (hash %d)", base.Label, hash)
		k, err := newKey(label, "", psk, false)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	r.derived[hash] = keys
	return keys
}

func isDefaultVariant(psk []byte) bool {
	if len(psk) != len(DefaultPSK) {
		return false
	}
	for i := 0; i < len(psk)-1; i++ {
		if psk[i] != DefaultPSK[i] {
			return false
		}
	}
	return true
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

func scalar(value, comment string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value, LineComment: comment}
}

func mapping(head string, kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, HeadComment: head, Content: kv}
}

// defaultDocument builds the default config with comments.
func defaultDocument() *yaml.Node {
	d := Defaults()
	root := mapping("questbot configuration",
		scalar("log", ""), mapping("",
			scalar("level", ""), scalar(d.Log.Level, "debug, info, warn, error"),
			scalar("file", ""), scalar(d.Log.File, "empty logs to stderr; the tui always needs a file"),
			scalar("development", ""), scalar(strconv.FormatBool(d.Log.Development), ""),
		),
		scalar("storage", ""), mapping("",
			scalar("driver", ""), scalar(d.Storage.Driver, "memory or sqlite"),
			scalar("path", ""), scalar(d.Storage.Path, ""),
			scalar("cache_ttl", ""), scalar(d.Storage.Cache.String(), ""),
		),
		scalar("content", ""), mapping("",
			scalar("dir", ""), scalar(d.Content.Dir, "Lua content, bot.lua first"),
		),
		scalar("engine", ""), mapping("",
			scalar("seed", ""), scalar("0", "0 seeds from the clock"),
			scalar("tick_interval", ""), scalar(d.Engine.TickInterval.String(), ""),
			scalar("join_window", ""), scalar(d.Engine.JoinWindow.String(), ""),
			scalar("phase_duration", ""), scalar(d.Engine.PhaseDuration.String(), ""),
			scalar("default_cooldown", ""), scalar(d.Engine.DefaultCooldown.String(), ""),
			scalar("min_cooldown", ""), scalar(d.Engine.MinCooldown.String(), ""),
		),
		scalar("channels", ""), mapping("",
			scalar("streamer", ""), mapping("",
				scalar("cooldown_seconds", ""), scalar("90", ""),
				scalar("quest_enabled", ""), scalar("true", ""),
				scalar("moderators", ""), &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle},
			),
		),
	)
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
}

// DefaultConfigTemplate renders the default config file.
func DefaultConfigTemplate() string {
	data, err := encode(defaultDocument())
	if err != nil {
		panic(err) // static document
	}
	return string(data)
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// SaveChannelSetting writes one channel key into the config file, keeping
// comments and every other section as they are.
func SaveChannelSetting(configPath, channel, key string, value int) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping("")}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config file %s: top level is not a mapping", configPath)
	}

	channels := child(root, "channels")
	entry := child(channels, ChannelName(channel))
	rendered := strconv.Itoa(value)
	if key == "quest_enabled" {
		rendered = strconv.FormatBool(value != 0)
	}
	set(entry, key, rendered)

	out, err := encode(&doc)
	if err != nil {
		return err
	}
	return writeAtomic(configPath, out)
}

// child returns the mapping stored under key, creating it when absent.
func child(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			if v.Kind != yaml.MappingNode {
				*v = yaml.Node{Kind: yaml.MappingNode}
			}
			return v
		}
	}
	v := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, scalar(key, ""), v)
	return v
}

func set(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = scalar(value, m.Content[i+1].LineComment)
			return
		}
	}
	m.Content = append(m.Content, scalar(key, ""), scalar(value, ""))
}

func encode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path through a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	temp, err := os.CreateTemp(filepath.Dir(path), ".questbot.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := temp.Name()
	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the storage directory, the environment prefix and the
// command handled by the plugin.
const AppName = "status-image"

type Config struct {
	Server     ServerConfig    `mapstructure:"server" json:"server"`
	StorageDir string          `mapstructure:"storage_dir" json:"storage_dir"`
	Log        LogConfig       `mapstructure:"log" json:"log"`
	Plugin     PluginConfig    `mapstructure:"plugin" json:"plugin"`
	Render     RenderConfig    `mapstructure:"render" json:"render"`
	Theme      ThemeConfig     `mapstructure:"theme" json:"theme"`
	Analytics  AnalyticsConfig `mapstructure:"analytics" json:"analytics"`
	Channels   ChannelsConfig  `mapstructure:"channels" json:"channels"`
}

// ServerConfig configures the HTTP API. PublicURL is how chat users reach
// the server, used for links to rendered images on platforms that cannot
// carry files.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	Key            string        `mapstructure:"key" json:"-"`
	AdminUser      string        `mapstructure:"admin_user" json:"admin_user"`
	AdminPass      string        `mapstructure:"admin_pass" json:"-"`
	PublicURL      string        `mapstructure:"public_url" json:"public_url"`
	StreamInterval time.Duration `mapstructure:"stream_interval" json:"stream_interval"`
	EffectiveHost  string        `mapstructure:"-" json:"effectiveHost"`
	Port           int           `mapstructure:"-" json:"port"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug" json:"debug"`
	JSON  bool `mapstructure:"json" json:"json"`
}

type PluginConfig struct {
	Command       string        `mapstructure:"command" json:"command"`
	Prefixes      []string      `mapstructure:"prefixes" json:"prefixes"`
	Locale        string        `mapstructure:"locale" json:"locale"`
	CPUInterval   time.Duration `mapstructure:"cpu_interval" json:"cpu_interval"`
	OSInfoTimeout time.Duration `mapstructure:"osinfo_timeout" json:"osinfo_timeout"`
}

// RenderConfig configures the headless browser. AssetURL overrides the
// base URL the page loads its stylesheets from.
type RenderConfig struct {
	RemoteURL string        `mapstructure:"remote_url" json:"remote_url"`
	ExecPath  string        `mapstructure:"exec_path" json:"exec_path"`
	Width     int           `mapstructure:"width" json:"width"`
	Height    int           `mapstructure:"height" json:"height"`
	Selector  string        `mapstructure:"selector" json:"selector"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	Settle    time.Duration `mapstructure:"settle" json:"settle"`
	AssetURL  string        `mapstructure:"asset_url" json:"asset_url"`
}

type ThemeConfig struct {
	Name        string   `mapstructure:"name" json:"name"`
	DarkMode    bool     `mapstructure:"dark_mode" json:"dark_mode"`
	MaskOpacity float64  `mapstructure:"mask_opacity" json:"mask_opacity"`
	Backgrounds []string `mapstructure:"backgrounds" json:"backgrounds"`
}

type AnalyticsConfig struct {
	Enabled       bool `mapstructure:"enabled" json:"enabled"`
	RetentionDays int  `mapstructure:"retention_days" json:"retention_days"`
}

type NickServConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Password string `mapstructure:"password" json:"-"`
}

type IRCConfig struct {
	Enabled   bool           `mapstructure:"enabled" json:"enabled"`
	Host      string         `mapstructure:"host" json:"host"`
	Port      int            `mapstructure:"port" json:"port"`
	Nick      string         `mapstructure:"nick" json:"nick"`
	User      string         `mapstructure:"user" json:"user"`
	Realname  string         `mapstructure:"realname" json:"realname"`
	TLS       bool           `mapstructure:"tls" json:"tls"`
	Password  *string        `mapstructure:"password" json:"-"`
	NickServ  NickServConfig `mapstructure:"nickserv" json:"nickserv"`
	Channels  []string       `mapstructure:"channels" json:"channels"`
	Allowlist []string       `mapstructure:"allowlist" json:"allowlist"`
	Blocklist []string       `mapstructure:"blocklist" json:"blocklist"`
}

type WhatsappConfig struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	Allowlist []string `mapstructure:"allowlist" json:"allowlist"`
	Blocklist []string `mapstructure:"blocklist" json:"blocklist"`
}

type ChannelsConfig struct {
	IRC      IRCConfig      `mapstructure:"irc" json:"irc"`
	Whatsapp WhatsappConfig `mapstructure:"whatsapp" json:"whatsapp"`
}

func setDefaults() {
	viper.SetDefault("server.addr", "127.0.0.1:8090")
	viper.SetDefault("server.stream_interval", "5s")
	viper.SetDefault("plugin.command", AppName)
	viper.SetDefault("plugin.prefixes", []string{"/", "!"})
	viper.SetDefault("plugin.locale", "zh-cn")
	viper.SetDefault("plugin.cpu_interval", "5s")
	viper.SetDefault("plugin.osinfo_timeout", "10s")
	viper.SetDefault("render.width", 1050)
	viper.SetDefault("render.height", 1200)
	viper.SetDefault("render.selector", "#container")
	viper.SetDefault("render.timeout", "30s")
	viper.SetDefault("render.settle", "200ms")
	viper.SetDefault("theme.name", "default")
	viper.SetDefault("theme.mask_opacity", 0.15)
	viper.SetDefault("analytics.enabled", true)
	viper.SetDefault("analytics.retention_days", 30)
	viper.SetDefault("channels.irc.port", 6667)
	viper.SetDefault("channels.irc.nick", "statusbot")
	viper.SetDefault("channels.irc.user", "statusbot")
	viper.SetDefault("channels.irc.realname", "status-image bot")
}

// Load reads config.yaml from the storage directory (or override when set),
// applies STATUS_IMAGE_* environment variables and any flags bound from fs.
func Load(override string, fs *pflag.FlagSet) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	appDir := filepath.Join(home, "."+AppName)
	if envDir := os.Getenv("STATUS_IMAGE_STORAGE_DIR"); envDir != "" {
		appDir = envDir
	}
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	setDefaults()
	viper.SetEnvPrefix("STATUS_IMAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if fs != nil {
		if err := viper.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if override != "" {
		viper.SetConfigFile(override)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appDir)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.finish(home, appDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) finish(home, appDir string) error {
	// Compute effective host/port from addr
	host, portStr, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server.addr %q: %w", cfg.Server.Addr, err)
	}
	cfg.Server.EffectiveHost = host
	if cfg.Server.EffectiveHost == "" {
		cfg.Server.EffectiveHost = "0.0.0.0"
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q in server.addr %q: %w", portStr, cfg.Server.Addr, err)
	}
	cfg.Server.Port = p

	if cfg.Server.PublicURL == "" {
		h := cfg.Server.EffectiveHost
		if h == "0.0.0.0" || h == "::" {
			h = "127.0.0.1"
		}
		cfg.Server.PublicURL = "http://" + net.JoinHostPort(h, portStr)
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	if cfg.Render.AssetURL == "" {
		cfg.Render.AssetURL = cfg.Server.PublicURL + "/assets"
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = appDir
	}
	if strings.HasPrefix(cfg.StorageDir, "~/") {
		cfg.StorageDir = filepath.Join(home, cfg.StorageDir[2:])
	}

	if cfg.Theme.MaskOpacity < 0 || cfg.Theme.MaskOpacity > 1 {
		return fmt.Errorf("theme.mask_opacity %v outside [0, 1]", cfg.Theme.MaskOpacity)
	}
	if cfg.Plugin.CPUInterval <= 0 {
		return fmt.Errorf("plugin.cpu_interval must be positive, got %v", cfg.Plugin.CPUInterval)
	}

	// Resolve $VAR placeholders in secrets
	cfg.Server.Key = expandSecret(cfg.Server.Key)
	cfg.Server.AdminPass = expandSecret(cfg.Server.AdminPass)
	cfg.Channels.IRC.NickServ.Password = expandSecret(cfg.Channels.IRC.NickServ.Password)
	if cfg.Channels.IRC.Password != nil {
		pw := expandSecret(*cfg.Channels.IRC.Password)
		cfg.Channels.IRC.Password = &pw
	}
	return nil
}

func expandSecret(v string) string {
	if name, ok := strings.CutPrefix(v, "$"); ok {
		return os.Getenv(name)
	}
	return v
}

// SaveTheme persists the theme section into config.yaml in the storage
// directory.
func SaveTheme(cfg *Config) error {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return err
	}

	viper.Set("theme.name", cfg.Theme.Name)
	viper.Set("theme.dark_mode", cfg.Theme.DarkMode)
	viper.Set("theme.mask_opacity", cfg.Theme.MaskOpacity)
	viper.Set("theme.backgrounds", cfg.Theme.Backgrounds)

	configPath := filepath.Join(cfg.StorageDir, "config.yaml")
	viper.SetConfigType("yaml")
	return viper.WriteConfigAs(configPath)
}

package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// ErrHelp is returned by the loaders when --help was requested and printed.
var ErrHelp = errors.New("help requested")

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawArchiveCfg struct {
	FeedsFile         string `long:"feeds-file" env:"FEEDS_FILE" default:"feeds.jsonl" description:"Feeds list (.jsonl with {url, name} per line, or .yml)"`
	ArchiveDir        string `long:"archive-dir" env:"ARCHIVE_DIR" default:"pods" description:"Root directory to store archives"`
	UserAgent         string `long:"user-agent" env:"USER_AGENT" default:"pod-archive/1.0" description:"User agent string for HTTP requests"`
	Timeout           int    `long:"timeout" env:"TIMEOUT" default:"600" description:"Per-request timeout in seconds"`
	NoNormalizeImages bool   `long:"no-normalize-images" env:"NO_NORMALIZE_IMAGES" description:"Keep downloaded artwork as served"`
	Catalog           string `long:"catalog" env:"CATALOG" description:"SQLite file recording run outcomes (optional)"`
	Debug             bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type rawRegenerateCfg struct {
	ArchiveDir string `long:"archive-dir" env:"ARCHIVE_DIR" default:"pods" description:"Root directory where podcast archives are stored"`
	BaseUrl    string `long:"base-url" env:"BASE_URL" required:"true" description:"Public base URL for serving audio files"`
	TokenMap   string `long:"token-map" env:"TOKEN_MAP" description:"Token map file; enables /secure/<token> URLs (optional)"`

	S3Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"S3 endpoint to mirror regenerated folders to (optional)"`
	S3Bucket    string `long:"s3-bucket" env:"S3_BUCKET" description:"S3 bucket name"`
	S3Region    string `long:"s3-region" env:"S3_REGION" description:"S3 bucket region"`
	S3AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"S3 access key"`
	S3SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"S3 secret key"`
	S3Insecure  bool   `long:"s3-insecure" env:"S3_INSECURE" description:"Use plain HTTP for the S3 endpoint"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type rawTokenMapCfg struct {
	ArchiveDir string `long:"archive-dir" env:"ARCHIVE_DIR" default:"pods" description:"Root directory of podcast folders"`
	MapFile    string `long:"map-file" env:"MAP_FILE" default:"/etc/nginx/podcast_tokens.map" description:"Path to output token map file"`
	BackupDir  string `long:"backup-dir" env:"BACKUP_DIR" description:"Directory for previous map files (default: token_map_backups next to the map)"`
	Seed       string `long:"seed" env:"TOKEN_SEED" description:"Seed for reproducible tokens (random tokens when omitted)"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type rawServeCfg struct {
	ArchiveDir string `long:"archive-dir" env:"ARCHIVE_DIR" default:"pods" description:"Root directory where podcast archives are stored"`
	TokenMap   string `long:"token-map" env:"TOKEN_MAP" description:"Token map file for /secure/<token> routes (optional)"`
	Port       string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Catalog    string `long:"catalog" env:"CATALOG" description:"SQLite run catalog to expose under /api/runs (optional)"`
	APIKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"Key required for /api endpoints (API disabled when empty)"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func LoadArchive(args []string) (*ArchiveCfg, error) {
	var raw rawArchiveCfg
	if err := parse(&raw, args); err != nil {
		return nil, err
	}

	if raw.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", raw.Timeout)
	}

	return &ArchiveCfg{
		FeedsFile:       raw.FeedsFile,
		ArchiveDir:      raw.ArchiveDir,
		UserAgent:       raw.UserAgent,
		Timeout:         time.Duration(raw.Timeout) * time.Second,
		NormalizeImages: !raw.NoNormalizeImages,
		CatalogPath:     raw.Catalog,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}, nil
}

func LoadRegenerate(args []string) (*RegenerateCfg, error) {
	var raw rawRegenerateCfg
	if err := parse(&raw, args); err != nil {
		return nil, err
	}

	baseUrl := strings.TrimRight(strings.TrimSpace(raw.BaseUrl), "/")
	if baseUrl == "" {
		return nil, fmt.Errorf("base URL must not be empty")
	}

	return &RegenerateCfg{
		ArchiveDir:   raw.ArchiveDir,
		BaseUrl:      baseUrl,
		TokenMapPath: raw.TokenMap,
		S3: S3Cfg{
			Endpoint:  raw.S3Endpoint,
			Bucket:    raw.S3Bucket,
			Region:    raw.S3Region,
			AccessKey: raw.S3AccessKey,
			SecretKey: raw.S3SecretKey,
			UseSSL:    !raw.S3Insecure,
		},
		Debug:   raw.Debug,
		Version: GetVersion(),
	}, nil
}

func LoadTokenMap(args []string) (*TokenMapCfg, error) {
	var raw rawTokenMapCfg
	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, wrapParseErr(err)
	}

	// an explicit empty --seed="" is still a seed
	seeded := raw.Seed != "" || parser.FindOptionByLongName("seed").IsSet()

	return &TokenMapCfg{
		ArchiveDir: raw.ArchiveDir,
		MapFile:    raw.MapFile,
		BackupDir:  cmp.Or(raw.BackupDir, filepath.Join(filepath.Dir(raw.MapFile), "token_map_backups")),
		Seed:       raw.Seed,
		Seeded:     seeded,
		Debug:      raw.Debug,
	}, nil
}

func LoadServe(args []string) (*ServeCfg, error) {
	var raw rawServeCfg
	if err := parse(&raw, args); err != nil {
		return nil, err
	}

	return &ServeCfg{
		ArchiveDir:   raw.ArchiveDir,
		TokenMapPath: raw.TokenMap,
		Port:         raw.Port,
		CatalogPath:  raw.Catalog,
		APIKey:       raw.APIKey,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}, nil
}

func parse(raw any, args []string) error {
	parser := flags.NewParser(raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return wrapParseErr(err)
	}
	return nil
}

func wrapParseErr(err error) error {
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return ErrHelp
	}
	return fmt.Errorf("failed to parse configuration: %w", err)
}

// Exit handles a loader error the same way in every command.
func Exit(err error) {
	if errors.Is(err, ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

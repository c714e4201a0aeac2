package cfg

import "time"

// ArchiveCfg configures archive-downloader.
type ArchiveCfg struct {
	FeedsFile       string
	ArchiveDir      string
	UserAgent       string
	Timeout         time.Duration
	NormalizeImages bool
	CatalogPath     string
	Debug           bool
	Version         string
}

// RegenerateCfg configures feed-regenerator.
type RegenerateCfg struct {
	ArchiveDir   string
	BaseUrl      string
	TokenMapPath string
	S3           S3Cfg
	Debug        bool
	Version      string
}

// S3Cfg is empty unless a mirror bucket was requested.
type S3Cfg struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func (s S3Cfg) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// TokenMapCfg configures token-map-generator.
type TokenMapCfg struct {
	ArchiveDir string
	MapFile    string
	BackupDir  string
	Seed       string
	Seeded     bool
	Debug      bool
}

// ServeCfg configures archive-server.
type ServeCfg struct {
	ArchiveDir   string
	TokenMapPath string
	Port         string
	CatalogPath  string
	APIKey       string
	Debug        bool
	Version      string
}

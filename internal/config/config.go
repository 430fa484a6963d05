// Package config loads the preflight service configuration from the
// environment into a strongly-typed, validated struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds the single static operator credential and token settings.
type AuthConfig struct {
	Username       string
	PasswordHash   string
	SecretKey      string
	TokenTTL       time.Duration
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port                int
	WorkerConcurrency   int
	LogLevel            string
	LogFormat           string
}

// DNSProbeConfig configures the dns probe.
type DNSProbeConfig struct {
	Hostnames []string
}

// SSLProbeConfig configures the ssl probe.
type SSLProbeConfig struct {
	URLs []string
}

// KubernetesConfig configures the pvc probe. The diagnostics collector is
// configured by DiagnosticsConfig instead.
type KubernetesConfig struct {
	StorageClass string
	TestPVCSize  string
}

// PostgreSQLConfig configures the postgresqlv2 probe.
type PostgreSQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// CassandraConfig configures the cassandra probe.
type CassandraConfig struct {
	Hosts    []string
	Keyspace string
	User     string
	Password string
}

// BlobStorageConfig configures the blobstorage probe (Azure).
type BlobStorageConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
}

// S3Config configures the s3 probe.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3CompatibleConfig configures the s3compatible probe.
type S3CompatibleConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// AzureOpenAIConfig configures the azure_openai probe.
type AzureOpenAIConfig struct {
	Endpoint            string
	APIKey              string
	ChatDeployment      string
	EmbeddingDeployment string
	VisionDeployment    string
}

// BedrockConfig configures the bedrock probe.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ChatModelID     string
	EmbeddingModelID string
}

// OpenAIDirectConfig configures the openai_direct probe.
type OpenAIDirectConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig configures the anthropic probe.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// GeminiConfig configures the gemini probe.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// MistralConfig configures the mistral probe.
type MistralConfig struct {
	APIKey string
	Model  string
}

// DedicatedEmbeddingConfig configures the dedicated_embedding probe.
type DedicatedEmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// DocIntelConfig configures the docintel probe.
type DocIntelConfig struct {
	Endpoint string
	APIKey   string
}

// DiagnosticsConfig configures the diagnostics collector.
type DiagnosticsConfig struct {
	OutputDir    string
	DefaultSince time.Duration
}

// ProbesConfig bundles every per-probe sub-config.
type ProbesConfig struct {
	PostgreSQL         PostgreSQLConfig
	Cassandra          CassandraConfig
	BlobStorage        BlobStorageConfig
	S3                 S3Config
	S3Compatible       S3CompatibleConfig
	AzureOpenAI        AzureOpenAIConfig
	Bedrock            BedrockConfig
	OpenAIDirect       OpenAIDirectConfig
	Anthropic          AnthropicConfig
	Gemini             GeminiConfig
	Mistral            MistralConfig
	DedicatedEmbedding DedicatedEmbeddingConfig
	DocIntel           DocIntelConfig
	Kubernetes         KubernetesConfig
	DNS                DNSProbeConfig
	SSL                SSLProbeConfig
}

// Config is the fully resolved, validated configuration for one process.
// There is no package-level instance; the composition root constructs one
// and threads it through every component that needs it.
type Config struct {
	Server      ServerConfig
	Auth        AuthConfig
	Probes      ProbesConfig
	Diagnostics DiagnosticsConfig
}

// Load reads the process environment into a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Port = envInt("PORT", 8080)
	cfg.Server.WorkerConcurrency = envInt("WORKER_CONCURRENCY_LIMIT", 16)
	cfg.Server.LogLevel = envOr("LOG_LEVEL", "info")
	cfg.Server.LogFormat = envOr("LOG_FORMAT", "text")

	cfg.Auth.Username = os.Getenv("AUTH_USERNAME")
	cfg.Auth.PasswordHash = os.Getenv("AUTH_PASSWORD")
	cfg.Auth.SecretKey = os.Getenv("AUTH_SECRET_KEY")
	ttlMinutes := envInt("AUTH_TOKEN_TTL_MINUTES", 30)
	cfg.Auth.TokenTTL = time.Duration(ttlMinutes) * time.Minute

	cfg.Probes.DNS.Hostnames = envList("DNS_TEST_HOSTNAMES")
	cfg.Probes.SSL.URLs = envList("SSL_TEST_URLS")

	cfg.Probes.Kubernetes.StorageClass = os.Getenv("KUBERNETES_STORAGE_CLASS")
	cfg.Probes.Kubernetes.TestPVCSize = envOr("KUBERNETES_TEST_PVC_SIZE", "1Gi")

	cfg.Probes.PostgreSQL = PostgreSQLConfig{
		Host:     os.Getenv("POSTGRESQL_HOST"),
		Port:     envOr("POSTGRESQL_PORT", "5432"),
		User:     os.Getenv("POSTGRESQL_USER"),
		Password: os.Getenv("POSTGRESQL_PASSWORD"),
		Database: os.Getenv("POSTGRESQL_DATABASE"),
		SSLMode:  envOr("POSTGRESQL_SSLMODE", "require"),
	}

	cfg.Probes.Cassandra = CassandraConfig{
		Hosts:    envList("CASSANDRA_HOSTS"),
		Keyspace: os.Getenv("CASSANDRA_KEYSPACE"),
		User:     os.Getenv("CASSANDRA_USER"),
		Password: os.Getenv("CASSANDRA_PASSWORD"),
	}

	cfg.Probes.BlobStorage = BlobStorageConfig{
		AccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
		AccountKey:    os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"),
		ContainerName: os.Getenv("AZURE_STORAGE_CONTAINER"),
	}

	cfg.Probes.S3 = S3Config{
		Region:          os.Getenv("S3_REGION"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("S3_BUCKET"),
	}

	cfg.Probes.S3Compatible = S3CompatibleConfig{
		Endpoint:        os.Getenv("S3COMPATIBLE_ENDPOINT"),
		Region:          envOr("S3COMPATIBLE_REGION", "us-east-1"),
		AccessKeyID:     os.Getenv("S3COMPATIBLE_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3COMPATIBLE_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("S3COMPATIBLE_BUCKET"),
	}

	cfg.Probes.AzureOpenAI = AzureOpenAIConfig{
		Endpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
		APIKey:              os.Getenv("AZURE_OPENAI_API_KEY"),
		ChatDeployment:      os.Getenv("AZURE_OPENAI_CHAT_DEPLOYMENT"),
		EmbeddingDeployment: os.Getenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT"),
		VisionDeployment:    os.Getenv("AZURE_OPENAI_VISION_DEPLOYMENT"),
	}

	cfg.Probes.Bedrock = BedrockConfig{
		Region:           os.Getenv("BEDROCK_REGION"),
		AccessKeyID:      os.Getenv("BEDROCK_ACCESS_KEY_ID"),
		SecretAccessKey:  os.Getenv("BEDROCK_SECRET_ACCESS_KEY"),
		ChatModelID:      envOr("BEDROCK_CHAT_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		EmbeddingModelID: envOr("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v1"),
	}

	cfg.Probes.OpenAIDirect = OpenAIDirectConfig{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
	}

	cfg.Probes.Anthropic = AnthropicConfig{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:  envOr("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
	}

	cfg.Probes.Gemini = GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  envOr("GEMINI_MODEL", "gemini-1.5-flash"),
	}

	cfg.Probes.Mistral = MistralConfig{
		APIKey: os.Getenv("MISTRAL_API_KEY"),
		Model:  envOr("MISTRAL_MODEL", "mistral-small-latest"),
	}

	cfg.Probes.DedicatedEmbedding = DedicatedEmbeddingConfig{
		BaseURL: os.Getenv("DEDICATED_EMBEDDING_BASE_URL"),
		APIKey:  os.Getenv("DEDICATED_EMBEDDING_API_KEY"),
		Model:   os.Getenv("DEDICATED_EMBEDDING_MODEL"),
	}

	cfg.Probes.DocIntel = DocIntelConfig{
		Endpoint: os.Getenv("DOCINTEL_ENDPOINT"),
		APIKey:   os.Getenv("DOCINTEL_API_KEY"),
	}

	cfg.Diagnostics.OutputDir = envOr("DIAGNOSTICS_OUTPUT_DIR", "/var/lib/preflight/diagnostics")
	cfg.Diagnostics.DefaultSince = time.Duration(envInt("DIAGNOSTICS_DEFAULT_SINCE_MINUTES", 60)) * time.Minute

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", cfg.Server.Port)
	}
	if cfg.Server.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY_LIMIT must be positive")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("AUTH_USERNAME is required")
	}
	if cfg.Auth.PasswordHash == "" {
		return fmt.Errorf("AUTH_PASSWORD is required")
	}
	if cfg.Auth.SecretKey == "" {
		return fmt.Errorf("AUTH_SECRET_KEY is required")
	}
	switch cfg.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.Server.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

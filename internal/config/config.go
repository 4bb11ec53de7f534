package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//retrieval defaults
	DefaultTopK             = 6
	MaxTopK                 = 20
	DefaultMinScore         = 0.25
	DefaultRerankCandidates = 20
	QuoteMaxChars           = 500

	//chunking defaults
	DefaultChunkSize = 900
	DefaultOverlap   = 150

	//session memory
	RecentTurnWindow = 6
	MaxMessageLimit  = 200

	//qdrant
	ChunkCollection       = "doc_chunks"
	CacheCollection       = "answer_cache"
	CacheSimilarityCutoff = 0.97
	QdrantUseTLS          = false
	QdrantPoolSize        = 1

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	BufferLimit                     = 100
	IngestJobTimeout                = 10 * time.Minute

	//server timeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Minute //chat waits on generation
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//external call timeouts
	ProbeTimeout      = 3 * time.Second
	MetadataTimeout   = 10 * time.Second
	EmbedTimeout      = 120 * time.Second
	RerankTimeout     = 60 * time.Second
	GenerationTimeout = 300 * time.Second

	//nvidia generation knobs
	NvidiaTemperature = 0.2
	NvidiaMaxTokens   = 4200

	//redis
	RedisJobStoreDB  = 0
	RedisJobStoreTTL = 24 * time.Hour
)

// Provider names accepted for LLM_PROVIDER.
const (
	ProviderOllama = "ollama"
	ProviderNvidia = "nvidia"
)

// Settings that come from the environment. Load fills them once at startup;
// tests may set them directly.
var (
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334

	OllamaBaseURL = "http://localhost:11434"

	NvidiaBaseURL = "https://integrate.api.nvidia.com/v1"
	NvidiaAPIKey  = ""

	LLMProvider = ProviderOllama

	FastModel             = "phi3:mini"
	QualityModel          = "deepseek-r1-distill-qwen:7b"
	QualityFallbackModels = "llama3.1:8b,qwen2.5:7b"
	NvidiaFastModel       = "meta/llama-3.1-8b-instruct"
	NvidiaQualityModel    = "deepseek-ai/deepseek-r1"

	EmbeddingModel = "nomic-embed-text"
	EmbeddingDim   = 768

	RerankBaseURL = "" //empty disables reranking

	SqlitePath = "data/deskrag.db"

	RedisAddr     = "127.0.0.1:6379"
	RedisPassword = ""

	AuthToken    = ""
	NoAuthBypass = false
)

// Load reads .env (if present) and applies environment overrides.
func Load() {
	_ = godotenv.Load()

	setString(&QdrantHost, "QDRANT_HOST")
	setInt(&QdrantGrpcPort, "QDRANT_GRPC_PORT")
	setString(&OllamaBaseURL, "OLLAMA_BASE_URL")
	setString(&NvidiaBaseURL, "NVIDIA_BASE_URL")
	setString(&NvidiaAPIKey, "NVIDIA_API_KEY")
	setString(&LLMProvider, "LLM_PROVIDER")
	setString(&FastModel, "FAST_MODEL")
	setString(&QualityModel, "QUALITY_MODEL")
	setString(&QualityFallbackModels, "QUALITY_FALLBACK_MODELS")
	setString(&NvidiaFastModel, "NVIDIA_FAST_MODEL")
	setString(&NvidiaQualityModel, "NVIDIA_QUALITY_MODEL")
	setString(&EmbeddingModel, "EMBEDDING_MODEL")
	setInt(&EmbeddingDim, "EMBEDDING_DIM")
	setString(&RerankBaseURL, "RERANK_BASE_URL")
	setString(&SqlitePath, "SQLITE_PATH")
	setString(&RedisAddr, "REDIS_ADDR")
	setString(&RedisPassword, "REDIS_PASSWORD")
	setString(&AuthToken, "AUTH_TOKEN")
	setBool(&NoAuthBypass, "NO_AUTH_BYPASS")
}

// QualityCandidates returns the ordered, de-duplicated quality model list:
// primary first, then the configured fallbacks.
func QualityCandidates() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append([]string{QualityModel}, strings.Split(QualityFallbackModels, ",")...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

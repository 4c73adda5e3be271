package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything tunable in one flat struct. The pipeline
// thresholds are configuration rather than constants because they drifted
// across revisions of the assistant; the defaults below are the most
// defensive values from that lineage.
type Config struct {
	Environment  string
	HTTPPort     string
	HTTPSPort    string
	Domains      []string
	CertCacheDir string
	LogDir       string
	DataDir      string

	DatabaseURL           string
	OpenAIAPIKey          string
	EmbeddingModel        string
	SummaryModel          string
	SemanticScholarAPIKey string

	ChunkSize    int
	ChunkOverlap int

	RetrievalTopK        int
	RetrievalThreshold   float64
	DirectFallbackConf   float64
	CombinedFallbackConf float64

	MinContextWords int
	GenerativeConf  float64
	ExtractiveConf  float64

	ReviewThreshold   float64
	RetryPenalty      float64
	ReviewMinWords    int
	ReviewMaxWords    int
	LengthPenalty     float64
	KeywordFloor      float64
	KeywordPenalty    float64
	ConfidenceFloor   float64
	ConfidenceCeiling float64

	CoherenceKeywordFloor    float64
	CoherenceSimilarityFloor float64
	CoherencePenalty         float64

	ExecutionTTL             time.Duration
	ExecutionCleanupInterval time.Duration
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		HTTPPort:     getEnv("HTTP_PORT", "8087"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		LogDir:       getEnv("LOG_DIR", "logs"),
		DataDir:      getEnv("DATA_DIR", "data"),

		DatabaseURL:           getEnv("DATABASE_URL", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		SummaryModel:          getEnv("SUMMARY_MODEL", "gpt-4o-mini"),
		SemanticScholarAPIKey: getEnv("SEMANTIC_SCHOLAR_API_KEY", ""),

		ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),

		RetrievalTopK:        getEnvAsInt("RETRIEVAL_TOP_K", 3),
		RetrievalThreshold:   getEnvAsFloat("RETRIEVAL_THRESHOLD", 0.25),
		DirectFallbackConf:   getEnvAsFloat("DIRECT_FALLBACK_CONFIDENCE", 0.7),
		CombinedFallbackConf: getEnvAsFloat("COMBINED_FALLBACK_CONFIDENCE", 0.6),

		MinContextWords: getEnvAsInt("MIN_CONTEXT_WORDS", 50),
		GenerativeConf:  getEnvAsFloat("GENERATIVE_CONFIDENCE", 0.85),
		ExtractiveConf:  getEnvAsFloat("EXTRACTIVE_CONFIDENCE", 0.6),

		ReviewThreshold:   getEnvAsFloat("REVIEW_THRESHOLD", 0.75),
		RetryPenalty:      getEnvAsFloat("RETRY_PENALTY", 0.9),
		ReviewMinWords:    getEnvAsInt("REVIEW_MIN_WORDS", 20),
		ReviewMaxWords:    getEnvAsInt("REVIEW_MAX_WORDS", 500),
		LengthPenalty:     getEnvAsFloat("LENGTH_PENALTY", 0.8),
		KeywordFloor:      getEnvAsFloat("KEYWORD_FLOOR", 0.15),
		KeywordPenalty:    getEnvAsFloat("KEYWORD_PENALTY", 0.85),
		ConfidenceFloor:   getEnvAsFloat("CONFIDENCE_FLOOR", 0.3),
		ConfidenceCeiling: getEnvAsFloat("CONFIDENCE_CEILING", 0.95),

		CoherenceKeywordFloor:    getEnvAsFloat("COHERENCE_KEYWORD_FLOOR", 0.2),
		CoherenceSimilarityFloor: getEnvAsFloat("COHERENCE_SIMILARITY_FLOOR", 0.15),
		CoherencePenalty:         getEnvAsFloat("COHERENCE_PENALTY", 0.85),

		ExecutionTTL:             time.Duration(getEnvAsInt("EXECUTION_TTL_SECONDS", 3600)) * time.Second,
		ExecutionCleanupInterval: time.Duration(getEnvAsInt("EXECUTION_CLEANUP_SECONDS", 600)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

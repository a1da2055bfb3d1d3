package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Model:      "test-embed",
			Dimensions: 1024,
		},
		LLM: LLMConfig{
			Models: []LLMModelConfig{{Model: "test-chat"}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingEmbeddingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_NoLLMModels(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Models = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty llm model chain")
	}
}

func TestValidate_LambdaRange(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Retrieval.MMRLambda = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for lambda out of range")
	}
}

func TestValidate_OverlapSmallerThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Chunking.ChunkSize = 100
	cfg.Chunking.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Embedding.TimeoutSec != 30 {
		t.Errorf("expected embedding TimeoutSec=30, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.Embedding.Retries != 1 {
		t.Errorf("expected embedding Retries=1, got %d", cfg.Embedding.Retries)
	}
	if cfg.LLM.TimeoutSec != 60 {
		t.Errorf("expected llm TimeoutSec=60, got %d", cfg.LLM.TimeoutSec)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MMRFetchK != 20 || cfg.Retrieval.MMRK != 6 {
		t.Errorf("expected MMR fetch_k=20 k=6, got %d/%d", cfg.Retrieval.MMRFetchK, cfg.Retrieval.MMRK)
	}
	if cfg.Retrieval.MMRLambda != 0.7 {
		t.Errorf("expected MMRLambda=0.7, got %v", cfg.Retrieval.MMRLambda)
	}
	if cfg.Retrieval.EvalTopK != 8 {
		t.Errorf("expected EvalTopK=8, got %d", cfg.Retrieval.EvalTopK)
	}
	if cfg.Chunking.ChunkSize != 512 || cfg.Chunking.ChunkOverlap != 64 {
		t.Errorf("expected chunking 512/64, got %d/%d", cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	}
	if cfg.Chunking.MaxCharsPerRowChunk != 1024 {
		t.Errorf("expected MaxCharsPerRowChunk=1024, got %d", cfg.Chunking.MaxCharsPerRowChunk)
	}
	if cfg.WebSearch.MaxResults != 5 {
		t.Errorf("expected web search MaxResults=5, got %d", cfg.WebSearch.MaxResults)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSW 32/400, got %d/%d", cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	}
	if cfg.Storage.KeyPrefix != "ragdex:" {
		t.Errorf("expected KeyPrefix='ragdex:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 90, ShutdownSec: 5},
		Database:  DatabaseConfig{ReadinessTimeout: 15},
		Retrieval: RetrievalConfig{TopK: 10, MMRLambda: 0.3},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MMRLambda != 0.3 {
		t.Errorf("expected MMRLambda=0.3, got %v", cfg.Retrieval.MMRLambda)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestEmbeddingCacheEnabled(t *testing.T) {
	cfg := Config{}
	if !cfg.EmbeddingCacheEnabled() {
		t.Error("cache should default to enabled")
	}

	off := false
	cfg.Embedding.CacheEnabled = &off
	if cfg.EmbeddingCacheEnabled() {
		t.Error("explicit false should disable the cache")
	}
}

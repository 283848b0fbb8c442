// Package file provides TOML-backed configuration for the embedx CLI.
// Configuration is one explicit typed struct: every option has a named
// field and a documented default, and is validated once at startup.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied by Load when the file omits an option.
const (
	DefaultChunkSize      = 300
	DefaultChunkOverlap   = 50
	DefaultTopK           = 3
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultDimension      = 768
	DefaultProvider       = "ollama"
)

// Config is the full configuration surface of the embedx CLI.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks. A pointer
	// so an explicit 0 in the file is distinguishable from unset.
	ChunkOverlap *int `toml:"chunk_overlap"`

	// EmbeddingProvider selects the embedding backend: "ollama" or "openai".
	EmbeddingProvider string `toml:"embedding_provider"`

	// EmbeddingModel is the model identifier for the embedding backend.
	EmbeddingModel string `toml:"embedding_model"`

	// EmbeddingDimension is the fixed vector dimension. Must match the
	// model's output exactly; vectors are never truncated or padded.
	EmbeddingDimension int `toml:"embedding_dimension"`

	// MetadataStorePath is the SQLite database file.
	MetadataStorePath string `toml:"metadata_store_path"`

	// VectorIndexPath is the vector snapshot file.
	VectorIndexPath string `toml:"vector_index_path"`

	// TopK is the default number of neighbours retrieved per query.
	TopK int `toml:"top_k"`

	// LLMProvider selects the response generation backend: "ollama" or
	// "openai". Empty disables chat.
	LLMProvider string `toml:"llm_provider"`

	// LLMModel is the model identifier for the response backend.
	LLMModel string `toml:"llm_model"`

	// OpenAIAPIKey authenticates the openai provider. Falls back to the
	// OPENAI_API_KEY environment variable.
	OpenAIAPIKey string `toml:"openai_api_key"`
}

// Overlap returns the chunk overlap. Load guarantees the field is set.
func (c *Config) Overlap() int {
	if c.ChunkOverlap == nil {
		return DefaultChunkOverlap
	}
	return *c.ChunkOverlap
}

// IDMapPath returns the id-mapping snapshot path, conventionally
// co-located with the metadata store.
func (c *Config) IDMapPath() string {
	return c.MetadataStorePath + "_mappings"
}

// Load reads the TOML config at path, fills defaults and validates.
// If path is empty, defaults to ~/.embedx/config.toml. A missing file is
// not an error; all defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".embedx", "config.toml")
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to path as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap == nil {
		overlap := DefaultChunkOverlap
		c.ChunkOverlap = &overlap
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = DefaultProvider
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.EmbeddingDimension == 0 {
		c.EmbeddingDimension = DefaultDimension
	}
	if c.MetadataStorePath == "" {
		c.MetadataStorePath = filepath.Join(baseDir, "data", "metadata.db")
	}
	if c.VectorIndexPath == "" {
		c.VectorIndexPath = filepath.Join(baseDir, "data", "vectors.index")
	}
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap() < 0 || c.Overlap() >= c.ChunkSize {
		return fmt.Errorf("config: chunk_overlap must be in [0, chunk_size), got %d", c.Overlap())
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("config: embedding_dimension must be positive, got %d", c.EmbeddingDimension)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("config: top_k must be positive, got %d", c.TopK)
	}
	switch c.EmbeddingProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown embedding_provider %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown llm_provider %q", c.LLMProvider)
	}
	return nil
}

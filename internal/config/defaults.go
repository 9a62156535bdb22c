package config

// LaptopFields is the default catalog schema: the fields every laptop
// record is required to carry, in display order.
var LaptopFields = []string{
	"name",
	"description",
	"processor_model",
	"processor_brand",
	"memory_cache_of_processor",
	"processor_frequency",
	"screen_size",
	"ram",
	"graphic_card_brand",
	"graphic_card_model",
	"video_dedicated_memory",
	"video_memory_type",
	"storage",
	"storage_disk_type",
	"graphic_card_resolution",
	"touch_screen",
	"ram_type",
	"wireless_communication",
	"color",
	"gamer",
	"sound",
	"keyboard_type",
	"battery_type",
	"height",
	"width",
	"depth",
	"mass",
	"price",
	"link",
	"image_url",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Catalog.Fields == nil {
		cfg.Catalog.Fields = LaptopFields
	}
	if cfg.Catalog.PriceField == "" {
		cfg.Catalog.PriceField = "price"
	}
	if cfg.Catalog.TextField == "" {
		cfg.Catalog.TextField = "description"
	}
	if cfg.Catalog.ExcludedKeys == nil {
		cfg.Catalog.ExcludedKeys = []string{"_id"}
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.TimeoutSec == 0 {
		cfg.Embedding.TimeoutSec = 30
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.BufferSize == 0 {
		cfg.Chunking.BufferSize = 10
	}
	if cfg.Chunking.Percentile == 0 {
		cfg.Chunking.Percentile = 95
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/usr/local/var/tana/data/db/catalog.db"
	}
	if cfg.Store.PriceIndexName == "" {
		cfg.Store.PriceIndexName = "price_desc_idx"
	}
	if cfg.Store.Qdrant.Collection == "" {
		cfg.Store.Qdrant.Collection = "laptops"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = 4
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}

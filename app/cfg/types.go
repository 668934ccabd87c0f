package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath      string
	StorageDir  string
	AudioBucket string

	// Application configuration
	CatalogDir        string
	Port              string
	BaseUrl           string
	OwnerID           string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int
	RequestTimeout    int
	APIAccessKey      string
	Extractor         string

	// External services
	GeminiModel       string
	GeminiBaseUrl     string
	ElevenLabsBaseUrl string
	VoiceID           string
	ModelID           string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// PublicBaseURL is the externally visible root, falling back to localhost.
func (c *Cfg) PublicBaseURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return "http://localhost:" + c.Port
}

func (c *Cfg) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

package config

type UploadConfig struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	PathPrefix       string
}

var UploadContexts = map[string]UploadConfig{
	"request_document": {
		AllowedMimeTypes: []string{
			"image/jpeg", "image/png", "application/pdf", "image/jpg",
		},
		MaxSizeMB:  10,
		PathPrefix: "requests",
	},
}

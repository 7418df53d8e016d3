package models

// EnvProduction is the environment name whose markers live in the production file.
const EnvProduction = "production"

// StorageFile returns the flat-file name holding the marker collection for env.
func StorageFile(env string) string {
	if env == EnvProduction {
		return "markers.prod.json"
	}

	return "markers.dev.json"
}

// StorageSubdir returns the directory, relative to the data root, for env.
func StorageSubdir(env string) string {
	if env == EnvProduction {
		return "prod"
	}

	return "dev"
}

// CacheKey returns the local cache key mirroring the collection for env.
func CacheKey(env string) string {
	return "map_markers_" + env
}

package config

// Default flag/env/file values, applied when no higher-precedence
// source sets the key. Keys match each struct's mapstructure tag.

func proxyDefaults() map[string]any {
	return map[string]any{
		"port":            8888,
		"workers":         1,
		"socket":          "/tmp/gfsystem/proxy.sock",
		"cache_socket":    "/tmp/gfsystem/cache.sock",
		"segment_dir":     "/tmp/gfsystem/segments",
		"segment_size":    uint32(1 << 20),
		"segment_pool":    1,
		"origin_url":      "http://localhost:9000",
		"logging.level":   "info",
		"logging.format":  "text",
		"admin.addr":      "127.0.0.1:9090",
		"admin.enabled":   true,
		"journal.enabled": false,
		"journal.dsn":     "/tmp/gfsystem/journal.db",
	}
}

func cacheDefaults() map[string]any {
	return map[string]any{
		"socket":         "/tmp/gfsystem/cache.sock",
		"proxy_socket":   "/tmp/gfsystem/proxy.sock",
		"segment_dir":    "/tmp/gfsystem/segments",
		"segment_size":   uint32(1 << 20),
		"workers":        1,
		"blob_root":      "/var/lib/gfcache/blobs",
		"index_path":     "/var/lib/gfcache/index",
		"logging.level":  "info",
		"logging.format": "text",
		"admin.addr":     "127.0.0.1:9091",
		"admin.enabled":  true,
	}
}

func loadDefaults() map[string]any {
	return map[string]any{
		"server":         "localhost",
		"port":           8888,
		"workers":        1,
		"rate":           0,
		"num_requests":   1,
		"workload":       "workload.txt",
		"logging.level":  "info",
		"logging.format": "text",
	}
}

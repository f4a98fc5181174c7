package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonnybach/low-level-file-server/internal/cli/prompt"
)

// confirmOverwrite asks before replacing an existing config file.
func confirmOverwrite(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ok, err := prompt.Confirm(fmt.Sprintf("%s already exists, overwrite?", path), false)
	if err != nil {
		return err
	}
	if !ok {
		return prompt.ErrAborted
	}
	return nil
}

// NewConfigCommand groups config-authoring subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "generate gfsystem config files",
	}
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var binary, out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "interactively build a YAML config file for gfproxy or gfcache",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch binary {
			case "proxy":
				return initProxyConfig(out)
			case "cache":
				return initCacheConfig(out)
			default:
				return fmt.Errorf("gfctl: unknown --binary %q (want proxy or cache)", binary)
			}
		},
	}

	cmd.Flags().StringVar(&binary, "binary", "proxy", "which binary to configure: proxy or cache")
	cmd.Flags().StringVar(&out, "out", "", "output YAML path (defaults to gfproxy.yaml or gfcache.yaml)")
	return cmd
}

func initProxyConfig(out string) error {
	if out == "" {
		out = "gfproxy.yaml"
	}

	port, err := prompt.InputPort("Listen port", 8888)
	if err != nil {
		return err
	}
	workers, err := prompt.InputInt("Worker threads", 8)
	if err != nil {
		return err
	}
	segmentPool, err := prompt.InputInt("Segment pool size", 16)
	if err != nil {
		return err
	}
	cacheSocket, err := prompt.Input("Cache daemon socket path", "/tmp/gfsystem/cache.sock")
	if err != nil {
		return err
	}
	originURL, err := prompt.Input("Origin server URL", "http://localhost:9000")
	if err != nil {
		return err
	}

	doc := map[string]any{
		"port":         port,
		"workers":      workers,
		"segment_pool": segmentPool,
		"cache_socket": cacheSocket,
		"origin_url":   originURL,
	}
	return writeYAML(out, doc)
}

func initCacheConfig(out string) error {
	if out == "" {
		out = "gfcache.yaml"
	}

	workers, err := prompt.InputInt("Worker threads", 8)
	if err != nil {
		return err
	}
	blobRoot, err := prompt.Input("Blob store root directory", "/var/lib/gfcache/blobs")
	if err != nil {
		return err
	}
	proxySocket, err := prompt.Input("Proxy socket path", "/tmp/gfsystem/proxy.sock")
	if err != nil {
		return err
	}

	doc := map[string]any{
		"workers":      workers,
		"blob_root":    blobRoot,
		"proxy_socket": proxySocket,
	}
	return writeYAML(out, doc)
}

func writeYAML(path string, doc map[string]any) error {
	if err := confirmOverwrite(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("gfctl: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gfctl: write %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// Package ollama resolves model names like "qwen3:30b" to the GGUF blob
// paths of a local Ollama install, so layouts can be derived straight from a
// pulled model.
package ollama

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/23skdu/longbow-spyglass/internal/logger"
)

const (
	DefaultTag       = "latest"
	DefaultRegistry  = "registry.ollama.ai"
	DefaultNamespace = "library"
	MediaTypeModel   = "application/vnd.ollama.image.model"
)

type Manifest struct {
	SchemaVersion int     `json:"schemaVersion"`
	Layers        []Layer `json:"layers"`
}

type Layer struct {
	MediaType string `json:"mediaType"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

// ModelNotFoundError reports a model that is not present in the local store,
// as opposed to an unreadable or malformed one.
type ModelNotFoundError struct {
	Model string
	Path  string
}

func (e ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not found (looked at %s)", e.Model, e.Path)
}

// ModelsDir returns the local Ollama model store: $OLLAMA_MODELS when set,
// otherwise ~/.ollama/models.
func ModelsDir() (string, error) {
	if env := os.Getenv("OLLAMA_MODELS"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ollama", "models"), nil
}

// ParseName splits a model reference into registry, namespace, name and tag,
// filling Ollama's defaults for the omitted parts. Accepted shapes:
// "name", "name:tag", "namespace/name:tag", "registry/namespace/name:tag".
func ParseName(model string) (registry, namespace, name, tag string) {
	registry = DefaultRegistry
	namespace = DefaultNamespace
	tag = DefaultTag

	name = model
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		tag = name[i+1:]
		name = name[:i]
	}
	switch parts := strings.Split(name, "/"); len(parts) {
	case 1:
		name = parts[0]
	case 2:
		namespace, name = parts[0], parts[1]
	default:
		registry = parts[0]
		namespace = parts[1]
		name = strings.Join(parts[2:], "/")
	}
	return registry, namespace, name, tag
}

// Resolve finds the GGUF blob for a model reference inside baseDir.
func Resolve(baseDir, model string) (string, error) {
	registry, namespace, name, tag := ParseName(model)
	manifestPath := filepath.Join(baseDir, "manifests", registry, namespace, name, tag)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ModelNotFoundError{Model: model, Path: manifestPath}
		}
		return "", fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("decode manifest %s: %w", manifestPath, err)
	}

	var blobDigest string
	for _, l := range m.Layers {
		if l.MediaType == MediaTypeModel {
			blobDigest = l.Digest
			break
		}
	}
	if blobDigest == "" {
		return "", fmt.Errorf("manifest %s has no model layer", manifestPath)
	}

	// blobs are stored as sha256-<hash>, digests read sha256:<hash>
	blobPath := filepath.Join(baseDir, "blobs", strings.Replace(blobDigest, ":", "-", 1))
	if _, err := os.Stat(blobPath); err != nil {
		if os.IsNotExist(err) {
			return "", ModelNotFoundError{Model: model, Path: blobPath}
		}
		return "", fmt.Errorf("stat blob: %w", err)
	}

	logger.Log.Debug("resolved model blob",
		"model", model,
		"manifest", manifestPath,
		"blob", blobPath,
	)
	return blobPath, nil
}

// ResolveModelPath resolves against the default local model store.
func ResolveModelPath(model string) (string, error) {
	baseDir, err := ModelsDir()
	if err != nil {
		return "", err
	}
	return Resolve(baseDir, model)
}

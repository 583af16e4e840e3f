package biometric

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

var allowedPhotoExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// AllowedPhoto reports whether filename has a png, jpg or jpeg extension.
func AllowedPhoto(filename string) bool {
	return allowedPhotoExt[strings.ToLower(filepath.Ext(filename))]
}

// SanitizeFilename keeps letters, digits, '.', '_' and '-', turns spaces
// into underscores and drops any directory part and leading dots.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return strings.TrimLeft(b.String(), "._")
}

// ArtifactStore keeps photos under <dir>/photos and encodings under
// <dir>/encodings. Stored names are plain file names, never paths.
type ArtifactStore struct {
	photos    string
	encodings string
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	a := &ArtifactStore{
		photos:    filepath.Join(dir, "photos"),
		encodings: filepath.Join(dir, "encodings"),
	}
	for _, d := range []string{a.photos, a.encodings} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("artifact dir: %w", err)
		}
	}
	return a, nil
}

// SavePhoto writes data as "<systemID>_<sanitized filename>" and returns the
// stored name.
func (a *ArtifactStore) SavePhoto(systemID, filename string, data []byte) (string, error) {
	base := SanitizeFilename(filename)
	name := SanitizeFilename(systemID) + "_" + base
	if base == "" || !AllowedPhoto(base) {
		return "", fmt.Errorf("photo %q: unsupported file name", filename)
	}
	if err := writeAtomic(a.photos, name, data); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return name, nil
}

// SaveEncoding writes enc as JSON to "<systemID>_encoding.json".
func (a *ArtifactStore) SaveEncoding(systemID string, enc Encoding) (string, error) {
	name := SanitizeFilename(systemID) + "_encoding.json"
	data, err := json.Marshal(enc)
	if err != nil {
		return "", fmt.Errorf("encode encoding: %w", err)
	}
	if err := writeAtomic(a.encodings, name, data); err != nil {
		return "", fmt.Errorf("save encoding: %w", err)
	}
	return name, nil
}

func (a *ArtifactStore) LoadEncoding(name string) (Encoding, error) {
	path, err := a.resolve(a.encodings, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoding: %w", err)
	}
	var enc Encoding
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("decode encoding %s: %w", name, err)
	}
	return enc, nil
}

// PhotoPath returns the on-disk path of a stored photo.
func (a *ArtifactStore) PhotoPath(name string) (string, error) {
	return a.resolve(a.photos, name)
}

// RemovePhoto deletes a stored photo. Missing files and empty names are not
// errors.
func (a *ArtifactStore) RemovePhoto(name string) error {
	return a.remove(a.photos, name)
}

// RemoveEncoding deletes a stored encoding. Missing files and empty names
// are not errors.
func (a *ArtifactStore) RemoveEncoding(name string) error {
	return a.remove(a.encodings, name)
}

func (a *ArtifactStore) remove(dir, name string) error {
	if name == "" {
		return nil
	}
	path, err := a.resolve(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (a *ArtifactStore) resolve(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(dir, name), nil
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

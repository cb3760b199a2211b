package ctxcache

import (
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// hashFile streams content into h using a pooled buffer.
func hashFile(content io.Reader, h hash.Hash) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, content, buffer)
	if err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}
	return nil
}

// Fingerprint digests a built cache: the manifest bytes followed by every
// content file in manifest order, each preceded by its filename. Two caches
// built from the same batch and configuration have the same fingerprint.
func Fingerprint(c *ContextCache) (string, error) {
	h := defaultHashFunc()

	if err := hashPath(c.fs, filepath.Join(c.root, ManifestFilename), h); err != nil {
		return "", err
	}
	for _, entry := range c.manifest.Documents {
		h.Write([]byte(entry.File))
		if err := hashPath(c.fs, c.contentPath(entry), h); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func hashPath(fs afero.Fs, path string, h hash.Hash) error {
	f, err := fs.Open(path)
	if err != nil {
		return ioError("open "+filepath.Base(path), err)
	}
	defer f.Close()

	if err := hashFile(f, h); err != nil {
		return ioError("hash "+filepath.Base(path), err)
	}
	return nil
}

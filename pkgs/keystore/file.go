package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const keyFileExt = ".msgpack"

// FileStore persists every key as one msgpack file in a directory and serves reads from memory.
type FileStore struct {
	dir string
	mem *MemoryStore
}

// OpenFileStore creates dir if needed and loads the keys already stored there.
func OpenFileStore(dir string) (*FileStore, error) {
	dir = filepath.Clean(dir)
	if strings.Contains(dir, "..") {
		return nil, fmt.Errorf("keystore path cant contain traversal")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	s := &FileStore{dir: dir, mem: NewMemoryStore()}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != keyFileExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		k := &Key{}
		if err := msgpack.Unmarshal(data, k); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		if k.ID != KeyIDFromGroupKey(k.GroupKey) {
			return nil, fmt.Errorf("key file %s: id does not match group key", e.Name())
		}
		if err := s.mem.Put(k); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) Get(id KeyID) (*Key, error) {
	return s.mem.Get(id)
}

func (s *FileStore) Put(k *Key) error {
	data, err := msgpack.Marshal(k)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	path := filepath.Join(s.dir, k.ID.String()+keyFileExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return s.mem.Put(k)
}

func (s *FileStore) List() ([]*Key, error) {
	return s.mem.List()
}
